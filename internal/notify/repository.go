package notify

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, n *Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, n.ID, n.RecipientID, n.Name, n.Description, n.CreatedAt)
	return err
}

func (r *repository) ListForRecipient(ctx context.Context, recipientID string) ([]Notification, error) {
	notes := []Notification{}
	err := r.db.SelectContext(ctx, &notes, `
		SELECT id, recipient_id, name, description, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT 100
	`, recipientID)
	return notes, err
}

func (r *repository) MarkRead(ctx context.Context, recipientID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND recipient_id = $2
	`, id, recipientID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
