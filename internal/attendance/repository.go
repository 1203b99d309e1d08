package attendance

import (
	"context"
	"time"

	"shapeup/internal/calendar"

	"github.com/jmoiron/sqlx"
)

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, q sqlx.ExtContext, e *Entry) error {
	return sqlx.GetContext(ctx, q, &e.CreatedAt, `
		INSERT INTO attendance_entries (id, member_id, date, recorded_by)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, e.ID, e.MemberID, calendar.Format(e.Date), e.RecordedBy)
}

func (r *repository) ExistsOn(ctx context.Context, q sqlx.ExtContext, memberID string, day time.Time) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM attendance_entries WHERE member_id = $1 AND date = $2
		)
	`, memberID, calendar.Format(day))
	return exists, err
}

func (r *repository) Count(ctx context.Context, q sqlx.ExtContext, memberID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, `
		SELECT COUNT(*) FROM attendance_entries WHERE member_id = $1
	`, memberID)
	return n, err
}

func (r *repository) CountSince(ctx context.Context, q sqlx.ExtContext, memberID string, since time.Time) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, `
		SELECT COUNT(*) FROM attendance_entries WHERE member_id = $1 AND date >= $2
	`, memberID, calendar.Format(since))
	return n, err
}

func (r *repository) List(ctx context.Context, q sqlx.ExtContext, memberID string) ([]Entry, error) {
	entries := []Entry{}
	err := sqlx.SelectContext(ctx, q, &entries, `
		SELECT id, member_id, date, recorded_by, created_at
		FROM attendance_entries
		WHERE member_id = $1
		ORDER BY date DESC
	`, memberID)
	return entries, err
}
