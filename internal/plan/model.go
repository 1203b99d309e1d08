package plan

import "time"

// Plan is a gym service. MaxDays is the number of attendance-days it grants.
type Plan struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	MaxDays     int       `db:"max_days" json:"max_days"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
