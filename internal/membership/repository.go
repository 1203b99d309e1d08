package membership

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"shapeup/internal/apperr"
	"shapeup/internal/calendar"

	"github.com/jmoiron/sqlx"
)

const memberColumns = `id, status, service_id, start_date, total_attendance, pre_freeze_attendance,
		pre_freeze_days_count, freeze_date, freeze_duration_days, days_left, first_registered_at, updated_at`

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, q sqlx.ExtContext, m *Member) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, m.ID, m.Status, m.ServiceID, dateArg(m.StartDate), m.TotalAttendance, m.PreFreezeAttendance,
		m.PreFreezeDaysCount, dateArg(m.FreezeDate), m.FreezeDurationDays, m.DaysLeft, m.FirstRegisteredAt, m.UpdatedAt)
	return err
}

func (r *repository) Get(ctx context.Context, q sqlx.ExtContext, id string) (*Member, error) {
	return r.get(ctx, q, id, `SELECT `+memberColumns+` FROM members WHERE id = $1`)
}

// GetForUpdate row-locks the member until the surrounding transaction ends.
func (r *repository) GetForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*Member, error) {
	return r.get(ctx, q, id, `SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE`)
}

func (r *repository) get(ctx context.Context, q sqlx.ExtContext, id, query string) (*Member, error) {
	var m Member
	err := sqlx.GetContext(ctx, q, &m, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("member", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) Save(ctx context.Context, q sqlx.ExtContext, m *Member) error {
	res, err := q.ExecContext(ctx, `
		UPDATE members
		SET status = $2,
		    service_id = $3,
		    start_date = $4,
		    total_attendance = $5,
		    pre_freeze_attendance = $6,
		    pre_freeze_days_count = $7,
		    freeze_date = $8,
		    freeze_duration_days = $9,
		    days_left = $10,
		    updated_at = $11
		WHERE id = $1
	`, m.ID, m.Status, m.ServiceID, dateArg(m.StartDate), m.TotalAttendance, m.PreFreezeAttendance,
		m.PreFreezeDaysCount, dateArg(m.FreezeDate), m.FreezeDurationDays, m.DaysLeft, m.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("member", m.ID)
	}
	return nil
}

// List returns all members, or only those in status when it is non-empty.
func (r *repository) List(ctx context.Context, q sqlx.ExtContext, status Status) ([]Member, error) {
	members := []Member{}
	err := sqlx.SelectContext(ctx, q, &members, `
		SELECT `+memberColumns+`
		FROM members
		WHERE ($1 = '' OR status = $1)
		ORDER BY first_registered_at DESC, id
	`, string(status))
	return members, err
}

func (r *repository) ListFrozen(ctx context.Context, q sqlx.ExtContext) ([]Member, error) {
	members := []Member{}
	err := sqlx.SelectContext(ctx, q, &members, `
		SELECT `+memberColumns+`
		FROM members
		WHERE status = 'frozen'
		ORDER BY freeze_date ASC, id
	`)
	return members, err
}

func (r *repository) AppendEvent(ctx context.Context, q sqlx.ExtContext, e *Event) error {
	return sqlx.GetContext(ctx, q, &e.ID, `
		INSERT INTO membership_events (member_id, from_status, to_status, action, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, e.MemberID, e.FromStatus, e.ToStatus, e.Action, e.OccurredAt)
}

func (r *repository) History(ctx context.Context, q sqlx.ExtContext, memberID string) ([]Event, error) {
	events := []Event{}
	err := sqlx.SelectContext(ctx, q, &events, `
		SELECT id, member_id, from_status, to_status, action, occurred_at
		FROM membership_events
		WHERE member_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, memberID)
	return events, err
}

// Dates are stored as DATE columns and sent as YYYY-MM-DD to avoid zone conversion.
func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return calendar.Format(*t)
}
