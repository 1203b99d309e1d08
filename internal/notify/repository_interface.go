package notify

import "context"

type Repository interface {
	// Insert ignores ids that were already delivered.
	Insert(ctx context.Context, n *Notification) error
	ListForRecipient(ctx context.Context, recipientID string) ([]Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) (bool, error)
}
