package notify

import "time"

// AdminRecipient addresses notifications to every administrator.
const AdminRecipient = "admins"

// Job is the queued form of a notification.
type Job struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tries       int       `json:"tries"`
	Created     time.Time `json:"created"`
}

// Notification is a delivered inbox entry.
type Notification struct {
	ID          string    `db:"id" json:"id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
