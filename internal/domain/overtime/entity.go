package overtime

import "time"

type Status string

const (
	StatusPending  Status = "in_attesa"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// MinJustificationLength is the shortest accepted justification.
const MinJustificationLength = 20

// Request is an overtime request raised on a completed attendance record.
type Request struct {
	ID               string
	CheckinID        string
	CrewID           string
	RequestedMinutes int
	HourlyRate       float64 // copied from the crew member's benefit when requested
	Justification    string
	Status           Status
	ReviewedBy       *string
	ReviewedAt       *time.Time
	ReviewNote       *string
	CreatedAt        time.Time

	// Join
	CrewName *string
	Date     *time.Time
}
