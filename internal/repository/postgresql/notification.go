package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/notification"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type notificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, crew_id, sender_id, type, title, message, data, is_read, read_at, created_at`

// Create creates a new notification
func (r *notificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return r.CreateBatch(ctx, []*notification.Notification{n})
}

// CreateBatch creates multiple notifications with a single insert
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	q := GetQuerier(ctx, r.db)

	valueStrings := make([]string, 0, len(notifications))
	valueArgs := make([]interface{}, 0, len(notifications)*9)

	for i, n := range notifications {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}

		dataJSON, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal notification data: %w", err)
		}

		base := i * 9
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		valueArgs = append(valueArgs,
			n.ID,
			n.CrewID,
			n.SenderID,
			string(n.Type),
			n.Title,
			n.Message,
			dataJSON,
			n.IsRead,
			n.CreatedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO notifications (id, crew_id, sender_id, type, title, message, data, is_read, created_at)
		VALUES %s
	`, strings.Join(valueStrings, ", "))

	if _, err := q.Exec(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}

	return nil
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	var dataJSON []byte
	var notifType string

	if err := row.Scan(
		&n.ID,
		&n.CrewID,
		&n.SenderID,
		&notifType,
		&n.Title,
		&n.Message,
		&dataJSON,
		&n.IsRead,
		&n.ReadAt,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}

	n.Type = notification.NotificationType(notifType)
	if dataJSON != nil {
		if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification data: %w", err)
		}
	}
	return &n, nil
}

// GetByCrewID retrieves notifications for a crew member with pagination
func (r *notificationRepository) GetByCrewID(ctx context.Context, crewID string, page, pageSize int, unreadOnly bool) ([]*notification.Notification, int, error) {
	q := GetQuerier(ctx, r.db)

	offset := (page - 1) * pageSize

	whereClause := "crew_id = $1"
	if unreadOnly {
		whereClause += " AND is_read = false"
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM notifications WHERE " + whereClause
	if err := q.QueryRow(ctx, countQuery, crewID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE ` + whereClause + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, crewID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return notifications, total, nil
}

// GetUnreadCount returns the count of unread notifications for a crew member
func (r *notificationRepository) GetUnreadCount(ctx context.Context, crewID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE crew_id = $1 AND is_read = false`
	if err := q.QueryRow(ctx, query, crewID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkAllAsRead marks all notifications as read for a crew member
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, crewID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notifications
		SET is_read = true, read_at = NOW()
		WHERE crew_id = $1 AND is_read = false
	`
	if _, err := q.Exec(ctx, query, crewID); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}

	return nil
}

// MarkRead calls mark_notification_read
func (r *notificationRepository) MarkRead(ctx context.Context, id, crewID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var ok bool
	if err := q.QueryRow(ctx, `SELECT mark_notification_read($1, $2)`, id, crewID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return ok, nil
}

// Delete calls delete_notification
func (r *notificationRepository) Delete(ctx context.Context, id, crewID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var ok bool
	if err := q.QueryRow(ctx, `SELECT delete_notification($1, $2)`, id, crewID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}
	return ok, nil
}
