package notification

import (
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
)

// ============= Request DTOs =============

// CreateNotificationRequest represents a request to create a notification.
// CrewID is ignored by NotifySupervisors.
type CreateNotificationRequest struct {
	CrewID   string
	SenderID *string
	Type     NotificationType
	Title    string
	Message  string
	Data     map[string]interface{}
}

// RPCRequest is the body of the notification RPC endpoints
type RPCRequest struct {
	ID string `json:"p_id"`
}

func (r *RPCRequest) Validate() error {
	if validator.IsEmpty(r.ID) {
		return validator.ValidationErrors{{Field: "p_id", Message: "p_id is required"}}
	}
	return nil
}

// ============= Response DTOs =============

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationListResponse represents a paginated list of notifications
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int                    `json:"total"`
	UnreadCount   int                    `json:"unread_count"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
}

// UnreadCountResponse represents unread count response
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// SSETokenResponse represents the SSE token response
type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// ============= SSE Event =============

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Event string               `json:"event"`
	Data  NotificationResponse `json:"data"`
}
