package renewal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"shapeup/internal/calendar"

	"github.com/jmoiron/sqlx"
)

const requestColumns = `id, member_id, service_id, status, created_at, resolved_at, start_date`

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, q sqlx.ExtContext, req *Request) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO renewal_requests (id, member_id, service_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, req.ID, req.MemberID, req.ServiceID, req.Status, req.CreatedAt)
	return err
}

func (r *repository) Get(ctx context.Context, q sqlx.ExtContext, id string) (*Request, error) {
	return r.get(ctx, q, id, `SELECT `+requestColumns+` FROM renewal_requests WHERE id = $1`)
}

func (r *repository) GetForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*Request, error) {
	return r.get(ctx, q, id, `SELECT `+requestColumns+` FROM renewal_requests WHERE id = $1 FOR UPDATE`)
}

func (r *repository) get(ctx context.Context, q sqlx.ExtContext, id, query string) (*Request, error) {
	var req Request
	err := sqlx.GetContext(ctx, q, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &RequestError{Kind: ErrRequestNotFound, RequestID: id}
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) PendingFor(ctx context.Context, q sqlx.ExtContext, memberID string) (*Request, error) {
	return r.optional(ctx, q, `
		SELECT `+requestColumns+`
		FROM renewal_requests
		WHERE member_id = $1 AND status = 'pending'
		LIMIT 1
	`, memberID)
}

func (r *repository) LatestFor(ctx context.Context, q sqlx.ExtContext, memberID string) (*Request, error) {
	return r.optional(ctx, q, `
		SELECT `+requestColumns+`
		FROM renewal_requests
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, memberID)
}

func (r *repository) optional(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (*Request, error) {
	var req Request
	err := sqlx.GetContext(ctx, q, &req, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) Resolve(ctx context.Context, q sqlx.ExtContext, id string, outcome Status, startDate *time.Time, at time.Time) (bool, error) {
	var start any
	if startDate != nil {
		start = calendar.Format(*startDate)
	}
	res, err := q.ExecContext(ctx, `
		UPDATE renewal_requests
		SET status = $2, start_date = $3, resolved_at = $4
		WHERE id = $1 AND status = 'pending'
	`, id, outcome, start, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *repository) List(ctx context.Context, q sqlx.ExtContext, status Status) ([]Request, error) {
	requests := []Request{}
	err := sqlx.SelectContext(ctx, q, &requests, `
		SELECT `+requestColumns+`
		FROM renewal_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at ASC, id ASC
	`, string(status))
	return requests, err
}
