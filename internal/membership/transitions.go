package membership

import (
	"fmt"
	"net/http"
	"time"

	"shapeup/internal/apperr"
	"shapeup/internal/calendar"
)

var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionActivate: StatusActive,
		ActionDormant:  StatusDormant,
	},
	StatusActive: {
		ActionDeactivate: StatusInactive,
		ActionFreeze:     StatusFrozen,
		ActionDormant:    StatusDormant,
		ActionExpire:     StatusExpired,
	},
	StatusInactive: {
		ActionActivate: StatusActive,
		ActionDormant:  StatusDormant,
	},
	StatusFrozen: {
		ActionUnfreeze:   StatusActive,
		ActionDormant:    StatusDormant,
		ActionDeactivate: StatusInactive,
	},
	StatusExpired: {
		ActionActivate: StatusActive,
		ActionDormant:  StatusDormant,
	},
	StatusDormant: {
		ActionActivate: StatusActive,
	},
}

// Target reports where action leads from the given status.
func Target(from Status, action Action) (Status, bool) {
	to, ok := transitions[from][action]
	return to, ok
}

type IllegalTransitionError struct {
	From   Status
	Action Action
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a membership that is %s", e.Action, e.From)
}

func (e *IllegalTransitionError) HTTPStatus() int   { return http.StatusConflict }
func (e *IllegalTransitionError) ErrorCode() string { return "ILLEGAL_TRANSITION" }

// Command is an action plus its arguments.
type Command struct {
	Action Action
	// At is when the command is applied; freezes are dated from it.
	At time.Time

	StartDate time.Time // activate
	ServiceID string    // activate, empty keeps the current plan
	Days      int       // freeze
}

// Transition is one status step. A single command can produce two when an
// activation or unfreeze lands on zero days and expires immediately.
type Transition struct {
	From   Status
	To     Status
	Action Action
}

// Apply computes the record that results from cmd. maxDays belongs to the plan the
// record is on after the command. m is never modified; on error it is returned as is.
func Apply(m Member, cmd Command, maxDays int) (Member, []Transition, error) {
	to, ok := Target(m.Status, cmd.Action)
	if !ok {
		return m, nil, &IllegalTransitionError{From: m.Status, Action: cmd.Action}
	}
	if cmd.Action == ActionFreeze && cmd.Days < 1 {
		return m, nil, apperr.Invalid("duration_days", "must be at least 1")
	}

	next := m
	switch cmd.Action {
	case ActionActivate:
		start := calendar.Truncate(cmd.StartDate)
		next.StartDate = &start
		if cmd.ServiceID != "" {
			next.ServiceID = cmd.ServiceID
		}
		next.TotalAttendance = 0
		next.PreFreezeAttendance = 0
		next.PreFreezeDaysCount = 0
		clearFreeze(&next)
		next.DaysLeft = remaining(maxDays, 0)
	case ActionFreeze:
		day := calendar.Truncate(cmd.At)
		next.FreezeDate = &day
		next.FreezeDurationDays = cmd.Days
		next.PreFreezeAttendance = m.TotalAttendance
		next.PreFreezeDaysCount = m.DaysLeft
	case ActionUnfreeze:
		next.TotalAttendance = m.PreFreezeAttendance
		next.DaysLeft = m.PreFreezeDaysCount
		clearFreeze(&next)
	default:
		clearFreeze(&next)
		next.DaysLeft = remaining(maxDays, next.TotalAttendance)
	}
	next.Status = to

	steps := []Transition{{From: m.Status, To: to, Action: cmd.Action}}
	return settleExpiry(next, steps)
}

// Settle sets the attendance total and recomputes daysLeft, expiring an active
// record that runs out. Frozen records hold their counters and come back unchanged.
func Settle(m Member, total, maxDays int) (Member, []Transition) {
	if m.Status == StatusFrozen {
		return m, nil
	}
	next := m
	next.TotalAttendance = total
	next.DaysLeft = remaining(maxDays, total)
	next, steps, _ := settleExpiry(next, nil)
	return next, steps
}

func settleExpiry(m Member, steps []Transition) (Member, []Transition, error) {
	if m.Status == StatusActive && m.DaysLeft == 0 {
		m.Status = StatusExpired
		steps = append(steps, Transition{From: StatusActive, To: StatusExpired, Action: ActionExpire})
	}
	return m, steps, nil
}

func clearFreeze(m *Member) {
	m.FreezeDate = nil
	m.FreezeDurationDays = 0
}

func remaining(maxDays, total int) int {
	if left := maxDays - total; left > 0 {
		return left
	}
	return 0
}

// FreezeEndsOn is the day the stored freeze window runs out. It does not unfreeze.
func FreezeEndsOn(m Member) *time.Time {
	if m.FreezeDate == nil {
		return nil
	}
	end := calendar.ProjectEnd(*m.FreezeDate, m.FreezeDurationDays)
	return &end
}
