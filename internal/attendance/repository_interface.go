package attendance

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// Insert fails with a unique violation when the member already has an entry on that day.
	Insert(ctx context.Context, q sqlx.ExtContext, e *Entry) error
	ExistsOn(ctx context.Context, q sqlx.ExtContext, memberID string, day time.Time) (bool, error)
	Count(ctx context.Context, q sqlx.ExtContext, memberID string) (int, error)
	CountSince(ctx context.Context, q sqlx.ExtContext, memberID string, since time.Time) (int, error)
	List(ctx context.Context, q sqlx.ExtContext, memberID string) ([]Entry, error)
}
