package notification

import (
	"context"
)

// Service defines the notification service interface
type Service interface {
	// Queue notification (async processing via background workers)
	QueueNotification(ctx context.Context, req CreateNotificationRequest) error
	QueueBulkNotification(ctx context.Context, reqs []CreateNotificationRequest) error

	// NotifySupervisors fans a notification out to every supervisor and
	// mirrors it to the supervisor alert channel
	NotifySupervisors(ctx context.Context, req CreateNotificationRequest) error

	// Direct operations
	GetNotifications(ctx context.Context, crewID string, page, pageSize int, unreadOnly bool) (*NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, crewID string) (int, error)
	MarkRead(ctx context.Context, crewID string, req RPCRequest) error
	MarkAllAsRead(ctx context.Context, crewID string) error
	Delete(ctx context.Context, crewID string, req RPCRequest) error

	// SSE subscription
	Subscribe(ctx context.Context, crewID string) (<-chan SSEEvent, func())

	// Lifecycle
	Stop()
}
