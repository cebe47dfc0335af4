package service

import (
	"context"

	"github.com/google/uuid"

	"pocketbank/internal/model"
)

// NotificationStore persists notifications. The notifier worker writes,
// transports read.
type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// NotificationService is the read side for transports; creation happens in
// the notifier worker off the event bus.
type NotificationService struct {
	store NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, access Access, limit, offset int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListByUser(ctx, access.UserID, limit, offset)
}

func (s *NotificationService) UnreadCount(ctx context.Context, access Access) (int, error) {
	return s.store.UnreadCount(ctx, access.UserID)
}

func (s *NotificationService) MarkRead(ctx context.Context, access Access, id uuid.UUID) error {
	return s.store.MarkRead(ctx, access.UserID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, access Access) error {
	return s.store.MarkAllRead(ctx, access.UserID)
}
