package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeForcedCheckIn      NotificationType = "forced_checkin"
	TypeAutoCheckout       NotificationType = "auto_checkout"
	TypeOvertimeRequested  NotificationType = "overtime_requested"
	TypeOvertimeReviewed   NotificationType = "overtime_reviewed"
	TypeTimesheetSubmitted NotificationType = "timesheet_submitted"
	TypeTimesheetReviewed  NotificationType = "timesheet_reviewed"
	TypePaymentUpdated     NotificationType = "payment_updated"
	TypeExpenseSubmitted   NotificationType = "expense_submitted"
)

// Notification represents a notification entity
type Notification struct {
	ID        string
	CrewID    string
	SenderID  *string
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
}
