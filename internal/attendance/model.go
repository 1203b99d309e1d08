package attendance

import (
	"time"

	"shapeup/internal/membership"
)

// Actor is who recorded a check-in.
type Actor string

const (
	ActorMember Actor = "member"
	ActorAdmin  Actor = "admin"
)

// Entry is one attended calendar day. Entries are never updated or deleted.
type Entry struct {
	ID         string    `db:"id" json:"id"`
	MemberID   string    `db:"member_id" json:"member_id"`
	Date       time.Time `db:"date" json:"date"`
	RecordedBy Actor     `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Receipt is the outcome of a successful check-in.
type Receipt struct {
	Entry  Entry             `json:"entry"`
	Member membership.Member `json:"member"`
}
