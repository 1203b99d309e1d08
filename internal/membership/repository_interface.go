package membership

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Repository methods take the querier so the same code runs inside or outside a transaction.
type Repository interface {
	Insert(ctx context.Context, q sqlx.ExtContext, m *Member) error
	Get(ctx context.Context, q sqlx.ExtContext, id string) (*Member, error)
	GetForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*Member, error)
	Save(ctx context.Context, q sqlx.ExtContext, m *Member) error
	List(ctx context.Context, q sqlx.ExtContext, status Status) ([]Member, error)
	ListFrozen(ctx context.Context, q sqlx.ExtContext) ([]Member, error)

	AppendEvent(ctx context.Context, q sqlx.ExtContext, e *Event) error
	History(ctx context.Context, q sqlx.ExtContext, memberID string) ([]Event, error)
}
