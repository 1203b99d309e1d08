package membership

import (
	"strings"
	"time"

	"shapeup/internal/apperr"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusFrozen   Status = "frozen"
	StatusDormant  Status = "dormant"
	StatusExpired  Status = "expired"
)

var allStatuses = []Status{
	StatusPending,
	StatusActive,
	StatusInactive,
	StatusFrozen,
	StatusDormant,
	StatusExpired,
}

// Statuses returns every status in a stable order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(s string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range allStatuses {
		if st == candidate {
			return st, nil
		}
	}
	return "", apperr.Invalid("status", "unknown status "+strings.TrimSpace(s))
}

type Action string

const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionFreeze     Action = "freeze"
	ActionUnfreeze   Action = "unfreeze"
	ActionDormant    Action = "dormant"
	ActionExpire     Action = "expire"
)

var allActions = []Action{
	ActionActivate,
	ActionDeactivate,
	ActionFreeze,
	ActionUnfreeze,
	ActionDormant,
	ActionExpire,
}

func Actions() []Action {
	out := make([]Action, len(allActions))
	copy(out, allActions)
	return out
}

// Member is the membership record. Only the engine writes it.
type Member struct {
	ID                  string     `db:"id" json:"id"`
	Status              Status     `db:"status" json:"status"`
	ServiceID           string     `db:"service_id" json:"service_id"`
	StartDate           *time.Time `db:"start_date" json:"start_date,omitempty"`
	TotalAttendance     int        `db:"total_attendance" json:"total_attendance"`
	PreFreezeAttendance int        `db:"pre_freeze_attendance" json:"pre_freeze_attendance"`
	PreFreezeDaysCount  int        `db:"pre_freeze_days_count" json:"pre_freeze_days_count"`
	FreezeDate          *time.Time `db:"freeze_date" json:"freeze_date,omitempty"`
	FreezeDurationDays  int        `db:"freeze_duration_days" json:"freeze_duration_days"`
	DaysLeft            int        `db:"days_left" json:"days_left"`
	FirstRegisteredAt   time.Time  `db:"first_registered_at" json:"first_registered_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// MemberView adds the fields UIs display but never store.
type MemberView struct {
	Member
	DaysSinceStart *int       `json:"days_since_start,omitempty"`
	FreezeEndsOn   *time.Time `json:"freeze_ends_on,omitempty"`
	// Only filled for single-member reads.
	AttendedToday *bool `json:"attended_today,omitempty"`
}

// Event is one applied status change.
type Event struct {
	ID         int64     `db:"id" json:"id"`
	MemberID   string    `db:"member_id" json:"member_id"`
	FromStatus Status    `db:"from_status" json:"from"`
	ToStatus   Status    `db:"to_status" json:"to"`
	Action     Action    `db:"action" json:"action"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}
