package plan

import (
	"context"
	"database/sql"
	"errors"

	"shapeup/internal/apperr"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id string) (*Plan, error) {
	var p Plan
	err := r.db.GetContext(ctx, &p, `
		SELECT id, name, description, max_days, created_at
		FROM services
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("service", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context) ([]Plan, error) {
	plans := []Plan{}
	err := r.db.SelectContext(ctx, &plans, `
		SELECT id, name, description, max_days, created_at
		FROM services
		ORDER BY max_days ASC, name ASC
	`)
	return plans, err
}
