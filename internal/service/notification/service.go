package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/notification"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/alert"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/sse"
	"github.com/google/uuid"
)

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
}

type service struct {
	repo    notification.Repository
	members crew.MemberRepository
	alerts  alert.Notifier
	hub     *sse.Hub
	config  Config

	queue    chan notification.CreateNotificationRequest
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewNotificationService creates a new notification service with background workers
func NewNotificationService(
	repo notification.Repository,
	members crew.MemberRepository,
	alerts alert.Notifier,
	hub *sse.Hub,
	cfg Config,
) notification.Service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if alerts == nil {
		alerts = alert.Noop{}
	}

	s := &service{
		repo:    repo,
		members: members,
		alerts:  alerts,
		hub:     hub,
		config:  cfg,
		queue:   make(chan notification.CreateNotificationRequest, cfg.QueueSize),
		stopCh:  make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("notification service started",
		"workers", cfg.WorkerCount, "batch_size", cfg.BatchSize, "flush_interval", cfg.FlushInterval)

	return s
}

func newNotification(req notification.CreateNotificationRequest) *notification.Notification {
	return &notification.Notification{
		ID:        uuid.New().String(),
		CrewID:    req.CrewID,
		SenderID:  req.SenderID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Data:      req.Data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
}

// worker drains the queue, inserting in batches of BatchSize or every FlushInterval.
func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]notification.CreateNotificationRequest, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		notifications := make([]*notification.Notification, len(batch))
		for i, req := range batch {
			notifications[i] = newNotification(req)
		}

		if err := s.repo.CreateBatch(ctx, notifications); err != nil {
			slog.Error("failed to insert notification batch", "worker", id, "count", len(notifications), "error", err)
		} else {
			slog.Debug("inserted notification batch", "worker", id, "count", len(notifications))
			for _, n := range notifications {
				s.publish(n)
			}
		}

		batch = batch[:0]
	}

	for {
		select {
		case req := <-s.queue:
			batch = append(batch, req)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
		drain:
			for {
				select {
				case req := <-s.queue:
					batch = append(batch, req)
				default:
					break drain
				}
			}
			flush()
			return
		}
	}
}

func (s *service) publish(n *notification.Notification) {
	s.hub.Publish(n.CrewID, sse.Event{
		CrewID: n.CrewID,
		Event:  "notification",
		Data:   toResponse(n),
	})
}

// QueueNotification queues a notification for async processing
func (s *service) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	select {
	case s.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Queue full, insert directly
		return s.directInsert(ctx, req)
	}
}

// QueueBulkNotification queues multiple notifications for async processing
func (s *service) QueueBulkNotification(ctx context.Context, reqs []notification.CreateNotificationRequest) error {
	for _, req := range reqs {
		if err := s.QueueNotification(ctx, req); err != nil {
			slog.WarnContext(ctx, "failed to queue notification", "crew_id", req.CrewID, "type", req.Type, "error", err)
		}
	}
	return nil
}

// NotifySupervisors implements notification.Service.
func (s *service) NotifySupervisors(ctx context.Context, req notification.CreateNotificationRequest) error {
	supervisors, err := s.members.ListSupervisors(ctx)
	if err != nil {
		return fmt.Errorf("failed to list supervisors: %w", err)
	}

	reqs := make([]notification.CreateNotificationRequest, 0, len(supervisors))
	for _, m := range supervisors {
		if req.SenderID != nil && *req.SenderID == m.ID {
			continue
		}
		r := req
		r.CrewID = m.ID
		reqs = append(reqs, r)
	}
	if err := s.QueueBulkNotification(ctx, reqs); err != nil {
		return err
	}

	if err := s.alerts.Send(ctx, toAlert(req)); err != nil {
		slog.WarnContext(ctx, "failed to send supervisor alert", "type", req.Type, "error", err)
	}
	return nil
}

func toAlert(req notification.CreateNotificationRequest) alert.Alert {
	level := alert.LevelInfo
	switch req.Type {
	case notification.TypeForcedCheckIn, notification.TypeAutoCheckout:
		level = alert.LevelWarning
	}

	fields := make(map[string]string, len(req.Data))
	for k, v := range req.Data {
		fields[k] = fmt.Sprint(v)
	}
	return alert.Alert{Level: level, Title: req.Title, Message: req.Message, Fields: fields}
}

// directInsert inserts a notification directly when queue is full
func (s *service) directInsert(ctx context.Context, req notification.CreateNotificationRequest) error {
	n := newNotification(req)
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.publish(n)
	return nil
}

func toResponse(n *notification.Notification) notification.NotificationResponse {
	return notification.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// GetNotifications retrieves paginated notifications for a crew member
func (s *service) GetNotifications(ctx context.Context, crewID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	notifications, total, err := s.repo.GetByCrewID(ctx, crewID, page, pageSize, unreadOnly)
	if err != nil {
		return nil, err
	}

	unreadCount, err := s.repo.GetUnreadCount(ctx, crewID)
	if err != nil {
		return nil, err
	}

	responses := make([]notification.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = toResponse(n)
	}

	return &notification.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		UnreadCount:   unreadCount,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// GetUnreadCount returns the count of unread notifications
func (s *service) GetUnreadCount(ctx context.Context, crewID string) (int, error) {
	return s.repo.GetUnreadCount(ctx, crewID)
}

// MarkRead marks one notification of crewID as read
func (s *service) MarkRead(ctx context.Context, crewID string, req notification.RPCRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	ok, err := s.repo.MarkRead(ctx, req.ID, crewID)
	if err != nil {
		return err
	}
	if !ok {
		return notification.ErrNotificationNotFound
	}
	return nil
}

// MarkAllAsRead marks all notifications as read for a crew member
func (s *service) MarkAllAsRead(ctx context.Context, crewID string) error {
	return s.repo.MarkAllAsRead(ctx, crewID)
}

// Delete removes a notification
func (s *service) Delete(ctx context.Context, crewID string, req notification.RPCRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, req.ID, crewID)
	if err != nil {
		return err
	}
	if !ok {
		return notification.ErrNotificationNotFound
	}
	return nil
}

// Subscribe creates an SSE subscription for a crew member
func (s *service) Subscribe(ctx context.Context, crewID string) (<-chan notification.SSEEvent, func()) {
	ch, cleanup := s.hub.Subscribe(crewID)

	out := make(chan notification.SSEEvent, 10)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				if resp, ok := event.Data.(notification.NotificationResponse); ok {
					select {
					case out <- notification.SSEEvent{Event: event.Event, Data: resp}:
					case <-ctx.Done():
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}

// Stop flushes pending notifications and stops the workers
func (s *service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		slog.Info("notification service stopped")
	})
}
