package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/notification"
	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/response"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
)

// NotificationHandler defines the notification handler interface
type NotificationHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	UnreadCount(w http.ResponseWriter, r *http.Request)
	MarkAllAsRead(w http.ResponseWriter, r *http.Request)

	// Named RPCs, body {"p_id": "..."}
	MarkRead(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)

	// SSE
	GetSSEToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type notificationHandlerImpl struct {
	notifService notification.Service
	jwtService   jwt.Service
	keepalive    time.Duration
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifService notification.Service, jwtService jwt.Service) NotificationHandler {
	return &notificationHandlerImpl{
		notifService: notifService,
		jwtService:   jwtService,
		keepalive:    30 * time.Second,
	}
}

// List returns paginated notifications for the authenticated crew member
func (h *notificationHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	crewID := crewIDFromContext(r)
	if crewID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	page := getIntQueryParam(r, "page", 1)
	pageSize := getIntQueryParam(r, "page_size", 20)
	unreadOnly := getBoolQueryParam(r, "unread_only", false)

	result, err := h.notifService.GetNotifications(r.Context(), crewID, page, pageSize, unreadOnly)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// UnreadCount returns the count of unread notifications
func (h *notificationHandlerImpl) UnreadCount(w http.ResponseWriter, r *http.Request) {
	crewID := crewIDFromContext(r)
	if crewID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	count, err := h.notifService.GetUnreadCount(r.Context(), crewID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, notification.UnreadCountResponse{UnreadCount: count})
}

// MarkAllAsRead marks all notifications as read
func (h *notificationHandlerImpl) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	crewID := crewIDFromContext(r)
	if crewID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	if err := h.notifService.MarkAllAsRead(r.Context(), crewID); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "All notifications marked as read", nil)
}

func (h *notificationHandlerImpl) rpc(w http.ResponseWriter, r *http.Request, call func(crewID string, req notification.RPCRequest) error) {
	crewID := crewIDFromContext(r)
	if crewID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req notification.RPCRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := call(crewID, req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, true)
}

// MarkRead is the mark_notification_read RPC
func (h *notificationHandlerImpl) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.rpc(w, r, func(crewID string, req notification.RPCRequest) error {
		return h.notifService.MarkRead(r.Context(), crewID, req)
	})
}

// Delete is the delete_notification RPC
func (h *notificationHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	h.rpc(w, r, func(crewID string, req notification.RPCRequest) error {
		return h.notifService.Delete(r.Context(), crewID, req)
	})
}

// GetSSEToken generates a short-lived token for SSE connections
func (h *notificationHandlerImpl) GetSSEToken(w http.ResponseWriter, r *http.Request) {
	crewID := crewIDFromContext(r)
	if crewID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(crewID)
	if err != nil {
		response.InternalServerError(w, "Failed to generate SSE token")
		return
	}

	response.Success(w, notification.SSETokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// Stream handles SSE connection for real-time notifications
func (h *notificationHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// EventSource cannot send headers, the token travels in the query
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	crewID, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.notifService.Subscribe(r.Context(), crewID)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"crew_id\":%q}\n\n", crewID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
