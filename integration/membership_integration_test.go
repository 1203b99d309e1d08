package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shapeup/internal/calendar"
	"shapeup/internal/membership"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembership_DatesSurviveNonUTCZone(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	// 23:30 in Los Angeles is already the next day in UTC.
	clock := &calendar.FixedClock{At: time.Date(2025, time.March, 10, 23, 30, 0, 0, losAngeles(t))}
	s := newStack(database, clock)

	_, err := s.members.Register(ctx, "standard-30", "m-dates")
	require.NoError(t, err)

	m, err := s.members.Activate(ctx, "m-dates", "")
	require.NoError(t, err)
	require.NotNil(t, m.StartDate)
	assert.Equal(t, "2025-03-10", calendar.Format(*m.StartDate))

	_, err = s.members.Freeze(ctx, "m-dates", 14)
	require.NoError(t, err)

	view, err := s.members.Get(ctx, "m-dates")
	require.NoError(t, err)
	require.NotNil(t, view.StartDate)
	require.NotNil(t, view.FreezeDate)
	require.NotNil(t, view.FreezeEndsOn)
	assert.Equal(t, "2025-03-10", calendar.Format(*view.StartDate))
	assert.Equal(t, "2025-03-10", calendar.Format(*view.FreezeDate))
	assert.Equal(t, "2025-03-24", calendar.Format(*view.FreezeEndsOn))
	require.NotNil(t, view.DaysSinceStart)
	assert.Equal(t, 0, *view.DaysSinceStart)

	overdue, err := s.members.OverdueFreezes(ctx, "2025-03-24")
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "m-dates", overdue[0].ID)

	overdue, err = s.members.OverdueFreezes(ctx, "2025-03-23")
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestMembership_ListFilter(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	s := newStack(database, &calendar.FixedClock{At: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)})

	for _, id := range []string{"m-a", "m-b", "m-c"} {
		_, err := s.members.Register(ctx, "basic-12", id)
		require.NoError(t, err)
	}
	_, err := s.members.Activate(ctx, "m-b", "2025-03-01")
	require.NoError(t, err)

	all, err := s.members.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := s.members.List(ctx, "active")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "m-b", active[0].ID)

	frozen, err := s.members.List(ctx, "frozen")
	require.NoError(t, err)
	assert.Empty(t, frozen)
}

func TestMembership_RegisterDuplicateID(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	s := newStack(database, calendar.SystemClock{})

	_, err := s.members.Register(ctx, "basic-12", "m-dup")
	require.NoError(t, err)

	_, err = s.members.Register(ctx, "basic-12", "m-dup")
	var dup *membership.DuplicateMemberError
	assert.True(t, errors.As(err, &dup))
}

func TestMembership_ConcurrentFreezeUnfreezeAcrossProcesses(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	clock := &calendar.FixedClock{At: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
	first := newStack(database, clock)
	second := newStack(database, clock)

	_, err := first.members.Register(ctx, "standard-30", "m-race")
	require.NoError(t, err)
	_, err = first.members.Activate(ctx, "m-race", "2025-03-01")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := first.members.Freeze(ctx, "m-race", 7)
			assertLegalOrRejected(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := second.members.Unfreeze(ctx, "m-race")
			assertLegalOrRejected(t, err)
		}()
	}
	wg.Wait()

	view, err := first.members.Get(ctx, "m-race")
	require.NoError(t, err)
	assert.Equal(t, 30, view.DaysLeft)
	assert.Equal(t, 0, view.TotalAttendance)
	assert.Equal(t, view.Status == membership.StatusFrozen, view.FreezeDate != nil)

	// Serialized history alternates freeze and unfreeze and never repeats a step.
	history, err := first.members.History(ctx, "m-race")
	require.NoError(t, err)
	require.NotEmpty(t, history)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].ToStatus, history[i].FromStatus)
	}
	assert.Equal(t, view.Status, history[len(history)-1].ToStatus)
}

func assertLegalOrRejected(t *testing.T, err error) {
	if err == nil {
		return
	}
	var illegal *membership.IllegalTransitionError
	assert.True(t, errors.As(err, &illegal), "unexpected error: %v", err)
}
