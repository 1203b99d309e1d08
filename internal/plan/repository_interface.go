package plan

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
}
