package notification

import (
	"context"
)

// Repository defines the notification repository interface
type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	CreateBatch(ctx context.Context, notifications []*Notification) error
	GetByCrewID(ctx context.Context, crewID string, page, pageSize int, unreadOnly bool) ([]*Notification, int, error)
	GetUnreadCount(ctx context.Context, crewID string) (int, error)
	MarkAllAsRead(ctx context.Context, crewID string) error

	// MarkRead and Delete go through the mark_notification_read and
	// delete_notification database functions. They report whether a row
	// owned by crewID was affected.
	MarkRead(ctx context.Context, id, crewID string) (bool, error)
	Delete(ctx context.Context, id, crewID string) (bool, error)
}
