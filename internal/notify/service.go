package notify

import (
	"context"

	"shapeup/internal/apperr"
)

// Inbox reads delivered notifications.
type Inbox interface {
	List(ctx context.Context, recipientID string) ([]Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
}

type inbox struct {
	repo Repository
}

func NewInbox(repo Repository) Inbox {
	return &inbox{repo: repo}
}

func (s *inbox) List(ctx context.Context, recipientID string) ([]Notification, error) {
	notes, err := s.repo.ListForRecipient(ctx, recipientID)
	if err != nil {
		return nil, apperr.Wrap("list notifications", err)
	}
	return notes, nil
}

func (s *inbox) MarkRead(ctx context.Context, recipientID, id string) error {
	ok, err := s.repo.MarkRead(ctx, recipientID, id)
	if err != nil {
		return apperr.Wrap("mark notification read", err)
	}
	if !ok {
		return apperr.NotFound("notification", id)
	}
	return nil
}
