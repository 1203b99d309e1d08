package renewal

import (
	"strings"
	"time"

	"shapeup/internal/apperr"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	// StatusNone is reported for members that never asked for a renewal.
	StatusNone Status = "none"
)

func parseFilter(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "", StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", apperr.Invalid("status", "must be pending, approved or rejected")
	}
}

type Request struct {
	ID        string    `db:"id" json:"id"`
	MemberID  string    `db:"member_id" json:"member_id"`
	ServiceID string    `db:"service_id" json:"service_id"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Set once resolved. StartDate is only set on approval.
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	StartDate  *time.Time `db:"start_date" json:"start_date,omitempty"`
}
