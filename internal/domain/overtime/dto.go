package overtime

import (
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
)

var FilterColumns = query.Columns{
	"id":         {Expr: "o.id", Type: "uuid"},
	"checkin_id": {Expr: "o.checkin_id", Type: "uuid"},
	"crew_id":    {Expr: "o.crew_id", Type: "uuid"},
	"status":     {Expr: "o.status"},
	"created_at": {Expr: "o.created_at", Type: "timestamptz"},
}

type OptionsResponse struct {
	CheckinID        string `json:"checkin_id"`
	WorkedMinutes    int    `json:"worked_minutes"`
	ExpectedMinutes  int    `json:"expected_minutes"`
	Requestable      int    `json:"requestable_minutes"`
	Options          []int  `json:"options"`
	AlreadyRequested bool   `json:"already_requested"`
}

type CreateRequest struct {
	CheckinID        string `json:"checkin_id"`
	RequestedMinutes int    `json:"requested_minutes"`
	Justification    string `json:"justification"`
}

func (r *CreateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CheckinID) {
		errs = append(errs, validator.ValidationError{Field: "checkin_id", Message: "checkin_id is required"})
	}
	if r.RequestedMinutes <= 0 || r.RequestedMinutes%worktime.OvertimeStep != 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "requested_minutes",
			Message: "requested_minutes must be a positive multiple of 30",
		})
	}
	if !validator.MinLength(r.Justification, MinJustificationLength) {
		errs = append(errs, validator.ValidationError{
			Field:   "justification",
			Message: "justification must be at least 20 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ReviewRequest struct {
	ID      string  `json:"-"`
	Approve bool    `json:"-"`
	Note    *string `json:"note,omitempty"`
}

type RequestResponse struct {
	ID               string     `json:"id"`
	CheckinID        string     `json:"checkin_id"`
	CrewID           string     `json:"crew_id"`
	CrewName         *string    `json:"crew_name,omitempty"`
	Date             *string    `json:"date,omitempty"`
	RequestedMinutes int        `json:"requested_minutes"`
	HourlyRate       float64    `json:"hourly_rate"`
	Amount           float64    `json:"amount"`
	Justification    string     `json:"justification"`
	Status           Status     `json:"status"`
	ReviewedBy       *string    `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote       *string    `json:"review_note,omitempty"`
	CreatedAt        string     `json:"created_at"`
}

func NewRequestResponse(r Request) RequestResponse {
	var date *string
	if r.Date != nil {
		d := r.Date.Format(localtime.DateLayout)
		date = &d
	}
	return RequestResponse{
		ID:               r.ID,
		CheckinID:        r.CheckinID,
		CrewID:           r.CrewID,
		CrewName:         r.CrewName,
		Date:             date,
		RequestedMinutes: r.RequestedMinutes,
		HourlyRate:       r.HourlyRate,
		Amount:           worktime.OvertimeAmount(r.RequestedMinutes, r.HourlyRate),
		Justification:    r.Justification,
		Status:           r.Status,
		ReviewedBy:       r.ReviewedBy,
		ReviewedAt:       r.ReviewedAt,
		ReviewNote:       r.ReviewNote,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
	}
}
