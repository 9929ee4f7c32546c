package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/notification"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/alert"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/sse"
)

type memoryRepo struct {
	notification.Repository
	mu    sync.Mutex
	saved []*notification.Notification
	read  map[string]string
}

func (m *memoryRepo) Create(ctx context.Context, n *notification.Notification) error {
	return m.CreateBatch(ctx, []*notification.Notification{n})
}

func (m *memoryRepo) CreateBatch(_ context.Context, ns []*notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, ns...)
	return nil
}

func (m *memoryRepo) MarkRead(_ context.Context, id, crewID string) (bool, error) {
	owner, ok := m.read[id]
	return ok && owner == crewID, nil
}

func (m *memoryRepo) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.saved))
	for _, n := range m.saved {
		out = append(out, n.CrewID)
	}
	return out
}

type supervisors struct{ crew.MemberRepository }

func (supervisors) ListSupervisors(context.Context) ([]crew.Member, error) {
	return []crew.Member{
		{ID: "sup-1", Role: crew.RoleSupervisor},
		{ID: "sup-2", Role: crew.RoleAdmin},
	}, nil
}

type recordingAlerts struct {
	mu   sync.Mutex
	sent []alert.Alert
}

func (r *recordingAlerts) Send(_ context.Context, a alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, a)
	return nil
}

func TestNotifySupervisors(t *testing.T) {
	repo := &memoryRepo{}
	alerts := &recordingAlerts{}
	hub := sse.NewHub()
	svc := NewNotificationService(repo, supervisors{}, alerts, hub, Config{FlushInterval: time.Hour})

	events, cleanup := svc.Subscribe(context.Background(), "sup-1")
	defer cleanup()

	sender := "sup-2"
	err := svc.NotifySupervisors(context.Background(), notification.CreateNotificationRequest{
		SenderID: &sender,
		Type:     notification.TypeForcedCheckIn,
		Title:    "Forced check-in",
		Message:  "Crew 7 checked in outside the window",
		Data:     map[string]interface{}{"attendance_id": "att-1", "distance_m": 412.5},
	})
	require.NoError(t, err)

	// Stop flushes the queued batch.
	svc.Stop()
	assert.Equal(t, []string{"sup-1"}, repo.recipients())

	select {
	case ev := <-events:
		assert.Equal(t, "notification", ev.Event)
		assert.Equal(t, notification.TypeForcedCheckIn, ev.Data.Type)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the notification")
	}

	require.Len(t, alerts.sent, 1)
	assert.Equal(t, alert.LevelWarning, alerts.sent[0].Level)
	assert.Equal(t, "412.5", alerts.sent[0].Fields["distance_m"])
}

func TestQueueFlushesOnBatchSize(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewNotificationService(repo, supervisors{}, nil, sse.NewHub(), Config{BatchSize: 2, WorkerCount: 1, FlushInterval: time.Hour})
	defer svc.Stop()

	for _, id := range []string{"crew-1", "crew-2"} {
		require.NoError(t, svc.QueueNotification(context.Background(), notification.CreateNotificationRequest{
			CrewID: id, Type: notification.TypeTimesheetReviewed, Title: "Timesheet approved",
		}))
	}

	assert.Eventually(t, func() bool { return len(repo.recipients()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestMarkRead(t *testing.T) {
	repo := &memoryRepo{read: map[string]string{"n-1": "crew-1"}}
	svc := NewNotificationService(repo, supervisors{}, nil, sse.NewHub(), Config{})
	defer svc.Stop()

	require.NoError(t, svc.MarkRead(context.Background(), "crew-1", notification.RPCRequest{ID: "n-1"}))
	assert.ErrorIs(t, svc.MarkRead(context.Background(), "crew-2", notification.RPCRequest{ID: "n-1"}), notification.ErrNotificationNotFound)
	assert.Error(t, svc.MarkRead(context.Background(), "crew-1", notification.RPCRequest{}))
}
