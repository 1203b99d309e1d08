package membership_test

import (
	"errors"
	"testing"
	"time"

	"shapeup/internal/membership"
	"shapeup/internal/membership/membershiptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var legal = map[membership.Status]map[membership.Action]membership.Status{
	membership.StatusPending: {
		membership.ActionActivate: membership.StatusActive,
		membership.ActionDormant:  membership.StatusDormant,
	},
	membership.StatusActive: {
		membership.ActionDeactivate: membership.StatusInactive,
		membership.ActionFreeze:     membership.StatusFrozen,
		membership.ActionDormant:    membership.StatusDormant,
		membership.ActionExpire:     membership.StatusExpired,
	},
	membership.StatusInactive: {
		membership.ActionActivate: membership.StatusActive,
		membership.ActionDormant:  membership.StatusDormant,
	},
	membership.StatusFrozen: {
		membership.ActionUnfreeze:   membership.StatusActive,
		membership.ActionDormant:    membership.StatusDormant,
		membership.ActionDeactivate: membership.StatusInactive,
	},
	membership.StatusExpired: {
		membership.ActionActivate: membership.StatusActive,
		membership.ActionDormant:  membership.StatusDormant,
	},
	membership.StatusDormant: {
		membership.ActionActivate: membership.StatusActive,
	},
}

func TestTarget_CoversEveryPair(t *testing.T) {
	for _, from := range membership.Statuses() {
		for _, action := range membership.Actions() {
			want, wantOK := legal[from][action]
			got, ok := membership.Target(from, action)
			assert.Equal(t, wantOK, ok, "%s/%s", from, action)
			assert.Equal(t, want, got, "%s/%s", from, action)
		}
	}
}

func TestParseStatus(t *testing.T) {
	st, err := membership.ParseStatus("  FroZen ")
	require.NoError(t, err)
	assert.Equal(t, membership.StatusFrozen, st)

	_, err = membership.ParseStatus("cancelled")
	assert.Error(t, err)
}

func drawMember(t *rapid.T, maxDays int) membership.Member {
	status := rapid.SampledFrom(membership.Statuses()).Draw(t, "status")
	start := membershiptest.Date(2024, time.January, 1).AddDate(0, 0, rapid.IntRange(0, 400).Draw(t, "startOffset"))

	m := membership.Member{ID: "m-1", Status: status, ServiceID: "svc"}
	switch status {
	case membership.StatusPending:
		m.DaysLeft = maxDays
		return m
	case membership.StatusActive:
		m.TotalAttendance = rapid.IntRange(0, maxDays-1).Draw(t, "total")
	case membership.StatusFrozen:
		m.TotalAttendance = rapid.IntRange(0, maxDays-1).Draw(t, "total")
		m.PreFreezeAttendance = m.TotalAttendance
		m.PreFreezeDaysCount = maxDays - m.TotalAttendance
		freeze := start.AddDate(0, 0, rapid.IntRange(0, 30).Draw(t, "freezeOffset"))
		m.FreezeDate = &freeze
		m.FreezeDurationDays = rapid.IntRange(1, 60).Draw(t, "freezeDays")
	default:
		m.TotalAttendance = rapid.IntRange(0, maxDays+5).Draw(t, "total")
	}
	m.StartDate = &start
	if status == membership.StatusFrozen {
		m.DaysLeft = m.PreFreezeDaysCount
	} else {
		m.DaysLeft = max(0, maxDays-m.TotalAttendance)
	}
	return m
}

func TestApply_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxDays := rapid.IntRange(1, 90).Draw(t, "maxDays")
		before := drawMember(t, maxDays)
		original := before

		at := membershiptest.Date(2025, time.March, 10).Add(time.Duration(rapid.IntRange(0, 23).Draw(t, "hour")) * time.Hour)
		cmd := membership.Command{
			Action:    rapid.SampledFrom(membership.Actions()).Draw(t, "action"),
			At:        at,
			StartDate: at.AddDate(0, 0, rapid.IntRange(-10, 10).Draw(t, "startShift")),
			Days:      rapid.IntRange(1, 60).Draw(t, "days"),
		}

		after, steps, err := membership.Apply(before, cmd, maxDays)
		assert.Equal(t, original, before, "input must never be modified")

		want, ok := legal[before.Status][cmd.Action]
		if !ok {
			var illegal *membership.IllegalTransitionError
			require.True(t, errors.As(err, &illegal))
			assert.Equal(t, before.Status, illegal.From)
			assert.Equal(t, cmd.Action, illegal.Action)
			assert.Equal(t, before, after)
			assert.Empty(t, steps)
			return
		}
		require.NoError(t, err)
		require.NotEmpty(t, steps)
		assert.Equal(t, membership.Transition{From: before.Status, To: want, Action: cmd.Action}, steps[0])
		assert.Equal(t, want, after.Status)

		switch cmd.Action {
		case membership.ActionActivate:
			require.NotNil(t, after.StartDate)
			assert.Equal(t, cmd.StartDate.Truncate(24*time.Hour), *after.StartDate)
			assert.Equal(t, 0, after.TotalAttendance)
			assert.Equal(t, maxDays, after.DaysLeft)
		case membership.ActionFreeze:
			require.NotNil(t, after.FreezeDate)
			assert.Equal(t, membershiptest.Date(2025, time.March, 10), *after.FreezeDate)
			assert.Equal(t, before.TotalAttendance, after.PreFreezeAttendance)
			assert.Equal(t, before.DaysLeft, after.PreFreezeDaysCount)
			assert.Equal(t, before.TotalAttendance, after.TotalAttendance)
			assert.Equal(t, before.DaysLeft, after.DaysLeft)
			assert.Equal(t, cmd.Days, after.FreezeDurationDays)
		case membership.ActionUnfreeze:
			assert.Equal(t, before.PreFreezeAttendance, after.TotalAttendance)
			assert.Equal(t, before.PreFreezeDaysCount, after.DaysLeft)
		default:
			assert.Equal(t, before.TotalAttendance, after.TotalAttendance)
			assert.Equal(t, max(0, maxDays-after.TotalAttendance), after.DaysLeft)
		}

		assert.GreaterOrEqual(t, after.DaysLeft, 0)
		assert.Equal(t, after.Status == membership.StatusFrozen, after.FreezeDate != nil)
		if after.Status == membership.StatusActive {
			assert.Equal(t, max(0, maxDays-after.TotalAttendance), after.DaysLeft)
			assert.Positive(t, after.DaysLeft)
		}
	})
}

func TestApply_FreezeRequiresPositiveDuration(t *testing.T) {
	m := membership.Member{ID: "m-1", Status: membership.StatusActive, TotalAttendance: 3, DaysLeft: 27}

	after, _, err := membership.Apply(m, membership.Command{Action: membership.ActionFreeze, Days: 0}, 30)
	require.Error(t, err)
	assert.Equal(t, m, after)
}

func TestApply_ActivateOnEmptyPlanExpiresImmediately(t *testing.T) {
	m := membership.Member{ID: "m-1", Status: membership.StatusPending}

	after, steps, err := membership.Apply(m, membership.Command{
		Action:    membership.ActionActivate,
		StartDate: membershiptest.Date(2025, time.May, 1),
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, membership.StatusExpired, after.Status)
	assert.Equal(t, []membership.Transition{
		{From: membership.StatusPending, To: membership.StatusActive, Action: membership.ActionActivate},
		{From: membership.StatusActive, To: membership.StatusExpired, Action: membership.ActionExpire},
	}, steps)
}

func TestApply_ActivateSwitchesPlan(t *testing.T) {
	m := membership.Member{ID: "m-1", Status: membership.StatusExpired, ServiceID: "svc-a", TotalAttendance: 30}

	after, _, err := membership.Apply(m, membership.Command{
		Action:    membership.ActionActivate,
		StartDate: membershiptest.Date(2025, time.May, 1),
		ServiceID: "svc-b",
	}, 12)
	require.NoError(t, err)
	assert.Equal(t, "svc-b", after.ServiceID)
	assert.Equal(t, 12, after.DaysLeft)
}

func TestSettle(t *testing.T) {
	start := membershiptest.Date(2025, time.January, 1)

	t.Run("reaching zero expires", func(t *testing.T) {
		m := membership.Member{ID: "m-1", Status: membership.StatusActive, StartDate: &start, TotalAttendance: 29, DaysLeft: 1}
		after, steps := membership.Settle(m, 30, 30)
		assert.Equal(t, membership.StatusExpired, after.Status)
		assert.Equal(t, 0, after.DaysLeft)
		assert.Equal(t, 30, after.TotalAttendance)
		assert.Len(t, steps, 1)
	})

	t.Run("expired stays expired and clamps", func(t *testing.T) {
		m := membership.Member{ID: "m-1", Status: membership.StatusExpired, StartDate: &start, TotalAttendance: 30}
		after, steps := membership.Settle(m, 31, 30)
		assert.Equal(t, membership.StatusExpired, after.Status)
		assert.Equal(t, 0, after.DaysLeft)
		assert.Empty(t, steps)
	})

	t.Run("frozen is untouched", func(t *testing.T) {
		m := membership.Member{ID: "m-1", Status: membership.StatusFrozen, FreezeDate: &start, TotalAttendance: 5, DaysLeft: 25}
		after, steps := membership.Settle(m, 9, 30)
		assert.Equal(t, m, after)
		assert.Empty(t, steps)
	})
}

func TestFreezeEndsOn(t *testing.T) {
	assert.Nil(t, membership.FreezeEndsOn(membership.Member{}))

	day := membershiptest.Date(2025, time.February, 20)
	end := membership.FreezeEndsOn(membership.Member{FreezeDate: &day, FreezeDurationDays: 14})
	require.NotNil(t, end)
	assert.Equal(t, membershiptest.Date(2025, time.March, 6), *end)
}
