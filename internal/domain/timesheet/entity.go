package timesheet

import (
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

type PaymentStatus string

const (
	PaymentPending        PaymentStatus = "pending"
	PaymentPaidByCompany  PaymentStatus = "paid_by_company"
	PaymentReceivedByCrew PaymentStatus = "received_by_crew"
	PaymentConfirmed      PaymentStatus = "confirmed"
)

var paymentOrder = map[PaymentStatus]int{
	PaymentPending:        0,
	PaymentPaidByCompany:  1,
	PaymentReceivedByCrew: 2,
	PaymentConfirmed:      3,
}

// IsValid checks the payment status is one of the known steps
func (p PaymentStatus) IsValid() bool {
	_, ok := paymentOrder[p]
	return ok
}

// Next reports whether to is the step immediately after p.
func (p PaymentStatus) Next(to PaymentStatus) bool {
	from, ok := paymentOrder[p]
	if !ok {
		return false
	}
	n, ok := paymentOrder[to]
	return ok && n == from+1
}

// BySupervisor reports whether moving to p is a supervisor action.
// received_by_crew is confirmed by the crew member who owns the entry.
func (p PaymentStatus) BySupervisor() bool {
	return p == PaymentPaidByCompany || p == PaymentConfirmed
}

type Event struct {
	ID                  string
	Title               string
	Location            *string
	StartDate           time.Time
	EndDate             time.Time
	CallTime            *string
	HourlyRate          *float64
	DailyRate           *float64
	RetentionPercentage float64
}

// Covers reports whether day falls within the event dates.
func (e *Event) Covers(day time.Time) bool {
	d := day.Format(localtime.DateLayout)
	return d >= e.StartDate.Format(localtime.DateLayout) && d <= e.EndDate.Format(localtime.DateLayout)
}

// Timesheet is one event attendance record.
type Timesheet struct {
	ID                  string
	CrewID              string
	EventID             string
	Date                time.Time
	StartTime           string
	EndTime             *string
	BreakMinutes        int
	TrackingMode        worktime.TrackingMode
	HourlyRate          *float64
	DailyRate           *float64
	RetentionPercentage float64
	TotalHours          *float64
	GrossAmount         *float64
	NetAmount           *float64
	PaymentStatus       PaymentStatus
	Status              Status
	RejectionReason     *string
	IsSelfAssigned      bool

	CheckInLatitude  *float64
	CheckInLongitude *float64
	CheckInAccuracy  *float64
	CheckInAddress   *string

	HasLunchBenefit  bool
	HasDinnerBenefit bool
	Notes            *string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Join
	EventTitle *string
	CrewName   *string
}

// Editable reports whether the crew member may still change the entry.
func (t *Timesheet) Editable() bool {
	return t.Status == StatusDraft || t.Status == StatusRejected
}

// Recompute refreshes total hours and amounts from the recorded times.
// Entries without an end time have no totals yet.
func (t *Timesheet) Recompute() error {
	if t.EndTime == nil {
		t.TotalHours, t.GrossAmount, t.NetAmount = nil, nil, nil
		return nil
	}
	start, err := localtime.ParseClock(trimSeconds(t.StartTime))
	if err != nil {
		return err
	}
	end, err := localtime.ParseClock(trimSeconds(*t.EndTime))
	if err != nil {
		return err
	}
	net := worktime.Elapsed(start, end) - t.BreakMinutes
	if net <= 0 {
		return worktime.ErrNonPositiveNet
	}

	hours := worktime.Hours(net)
	var hourly, daily float64
	if t.HourlyRate != nil {
		hourly = *t.HourlyRate
	}
	if t.DailyRate != nil {
		daily = *t.DailyRate
	}
	gross, netAmount := worktime.Amounts(t.TrackingMode, hours, hourly, daily, t.RetentionPercentage)

	t.TotalHours = &hours
	t.GrossAmount = &gross
	t.NetAmount = &netAmount
	return nil
}

func trimSeconds(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
