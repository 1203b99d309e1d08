package renewal

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// Insert fails with a unique violation when the member already has a pending request.
	Insert(ctx context.Context, q sqlx.ExtContext, r *Request) error
	Get(ctx context.Context, q sqlx.ExtContext, id string) (*Request, error)
	GetForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*Request, error)
	// PendingFor and LatestFor return nil without error when there is no match.
	PendingFor(ctx context.Context, q sqlx.ExtContext, memberID string) (*Request, error)
	LatestFor(ctx context.Context, q sqlx.ExtContext, memberID string) (*Request, error)
	// Resolve only updates pending requests and reports whether one was updated.
	Resolve(ctx context.Context, q sqlx.ExtContext, id string, outcome Status, startDate *time.Time, at time.Time) (bool, error)
	List(ctx context.Context, q sqlx.ExtContext, status Status) ([]Request, error)
}
