package timesheet

import (
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
)

const maxBreakMinutes = 12 * 60

// FilterColumns are the filterable columns of GET /timesheets.
var FilterColumns = query.Columns{
	"id":               {Expr: "t.id", Type: "uuid"},
	"crew_id":          {Expr: "t.crew_id", Type: "uuid"},
	"event_id":         {Expr: "t.event_id", Type: "uuid"},
	"date":             {Expr: "t.date", Type: "date"},
	"status":           {Expr: "t.status"},
	"payment_status":   {Expr: "t.payment_status"},
	"end_time":         {Expr: "t.end_time"},
	"is_self_assigned": {Expr: "t.is_self_assigned", Type: "boolean"},
	"created_at":       {Expr: "t.created_at", Type: "timestamptz"},
}

type CheckInRequest struct {
	ID               *string  `json:"id,omitempty"` // client generated, keeps offline replays idempotent
	EventID          string   `json:"event_id"`
	Date             *string  `json:"date,omitempty"`
	StartTime        *string  `json:"start_time,omitempty"`
	IsSelfAssigned   bool     `json:"is_self_assigned"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Accuracy         *float64 `json:"accuracy,omitempty"`
	Address          *string  `json:"address,omitempty"`
	HasLunchBenefit  bool     `json:"has_lunch_benefit"`
	HasDinnerBenefit bool     `json:"has_dinner_benefit"`
	Notes            *string  `json:"notes,omitempty"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EventID) {
		errs = append(errs, validator.ValidationError{Field: "event_id", Message: "event_id is required"})
	}
	if r.ID != nil && !validator.IsValidUUID(*r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id must be a UUIDv7"})
	}
	if r.Date != nil {
		if _, ok := validator.IsValidDate(*r.Date); !ok {
			errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
		}
	}
	if r.StartTime != nil && !validator.IsValidClock(*r.StartTime) {
		errs = append(errs, validator.ValidationError{Field: "start_time", Message: "start_time must be HH:MM or HH:MM:SS"})
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude and longitude must be provided together"})
	} else if r.Latitude != nil && !validator.IsValidCoordinates(*r.Latitude, *r.Longitude) {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "coordinates are out of range"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CheckOutRequest struct {
	ID           string  `json:"-"`
	EndTime      *string `json:"end_time,omitempty"`
	BreakMinutes *int    `json:"break_minutes,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

func (r *CheckOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "timesheet id is required"})
	}
	if r.EndTime != nil && !validator.IsValidClock(*r.EndTime) {
		errs = append(errs, validator.ValidationError{Field: "end_time", Message: "end_time must be HH:MM or HH:MM:SS"})
	}
	if r.BreakMinutes != nil && (*r.BreakMinutes < 0 || *r.BreakMinutes > maxBreakMinutes) {
		errs = append(errs, validator.ValidationError{Field: "break_minutes", Message: "break_minutes must be between 0 and 720"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// UpsertRequest is a manual entry. The id comes from the URL so repeated
// submissions of the same entry update instead of duplicating.
type UpsertRequest struct {
	ID               string                `json:"-"`
	EventID          string                `json:"event_id"`
	Date             string                `json:"date"`
	StartTime        string                `json:"start_time"`
	EndTime          *string               `json:"end_time,omitempty"`
	BreakMinutes     int                   `json:"break_minutes"`
	TrackingMode     worktime.TrackingMode `json:"tracking_mode,omitempty"`
	IsSelfAssigned   bool                  `json:"is_self_assigned"`
	HasLunchBenefit  bool                  `json:"has_lunch_benefit"`
	HasDinnerBenefit bool                  `json:"has_dinner_benefit"`
	Notes            *string               `json:"notes,omitempty"`
}

func (r *UpsertRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id must be a UUIDv7"})
	}
	if validator.IsEmpty(r.EventID) {
		errs = append(errs, validator.ValidationError{Field: "event_id", Message: "event_id is required"})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
	}
	if !validator.IsValidClock(r.StartTime) {
		errs = append(errs, validator.ValidationError{Field: "start_time", Message: "start_time must be HH:MM or HH:MM:SS"})
	}
	if r.EndTime != nil && !validator.IsValidClock(*r.EndTime) {
		errs = append(errs, validator.ValidationError{Field: "end_time", Message: "end_time must be HH:MM or HH:MM:SS"})
	}
	if r.BreakMinutes < 0 || r.BreakMinutes > maxBreakMinutes {
		errs = append(errs, validator.ValidationError{Field: "break_minutes", Message: "break_minutes must be between 0 and 720"})
	}
	if r.TrackingMode != "" && r.TrackingMode != worktime.TrackingHours && r.TrackingMode != worktime.TrackingDays {
		errs = append(errs, validator.ValidationError{Field: "tracking_mode", Message: "tracking_mode must be hours or days"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RejectRequest struct {
	ID     string `json:"-"`
	Reason string `json:"reason"`
}

func (r *RejectRequest) Validate() error {
	if validator.IsEmpty(r.Reason) {
		return ErrRejectionReasonNeeded
	}
	return nil
}

type PaymentRequest struct {
	ID     string        `json:"-"`
	Status PaymentStatus `json:"payment_status"`
}

func (r *PaymentRequest) Validate() error {
	if !r.Status.IsValid() || r.Status == PaymentPending {
		return validator.ValidationErrors{{
			Field:   "payment_status",
			Message: "payment_status must be paid_by_company, received_by_crew or confirmed",
		}}
	}
	return nil
}

type EventResponse struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Location            *string  `json:"location,omitempty"`
	StartDate           string   `json:"start_date"`
	EndDate             string   `json:"end_date"`
	CallTime            *string  `json:"call_time,omitempty"`
	HourlyRate          *float64 `json:"hourly_rate,omitempty"`
	DailyRate           *float64 `json:"daily_rate,omitempty"`
	RetentionPercentage float64  `json:"retention_percentage"`
}

func NewEventResponse(e Event) EventResponse {
	return EventResponse{
		ID:                  e.ID,
		Title:               e.Title,
		Location:            e.Location,
		StartDate:           e.StartDate.Format(localtime.DateLayout),
		EndDate:             e.EndDate.Format(localtime.DateLayout),
		CallTime:            e.CallTime,
		HourlyRate:          e.HourlyRate,
		DailyRate:           e.DailyRate,
		RetentionPercentage: e.RetentionPercentage,
	}
}

type TimesheetResponse struct {
	ID                  string                `json:"id"`
	CrewID              string                `json:"crew_id"`
	CrewName            *string               `json:"crew_name,omitempty"`
	EventID             string                `json:"event_id"`
	EventTitle          *string               `json:"event_title,omitempty"`
	Date                string                `json:"date"`
	StartTime           string                `json:"start_time"`
	EndTime             *string               `json:"end_time,omitempty"`
	BreakMinutes        int                   `json:"break_minutes"`
	TrackingMode        worktime.TrackingMode `json:"tracking_mode"`
	HourlyRate          *float64              `json:"hourly_rate,omitempty"`
	DailyRate           *float64              `json:"daily_rate,omitempty"`
	RetentionPercentage float64               `json:"retention_percentage"`
	TotalHours          *float64              `json:"total_hours,omitempty"`
	GrossAmount         *float64              `json:"gross_amount,omitempty"`
	NetAmount           *float64              `json:"net_amount,omitempty"`
	PaymentStatus       PaymentStatus         `json:"payment_status"`
	Status              Status                `json:"status"`
	RejectionReason     *string               `json:"rejection_reason,omitempty"`
	IsSelfAssigned      bool                  `json:"is_self_assigned"`
	CheckInLatitude     *float64              `json:"check_in_latitude,omitempty"`
	CheckInLongitude    *float64              `json:"check_in_longitude,omitempty"`
	CheckInAccuracy     *float64              `json:"check_in_accuracy,omitempty"`
	CheckInAddress      *string               `json:"check_in_address,omitempty"`
	HasLunchBenefit     bool                  `json:"has_lunch_benefit"`
	HasDinnerBenefit    bool                  `json:"has_dinner_benefit"`
	Notes               *string               `json:"notes,omitempty"`
	CreatedAt           string                `json:"created_at"`
	UpdatedAt           string                `json:"updated_at"`
}

func NewTimesheetResponse(t Timesheet) TimesheetResponse {
	return TimesheetResponse{
		ID:                  t.ID,
		CrewID:              t.CrewID,
		CrewName:            t.CrewName,
		EventID:             t.EventID,
		EventTitle:          t.EventTitle,
		Date:                t.Date.Format(localtime.DateLayout),
		StartTime:           t.StartTime,
		EndTime:             t.EndTime,
		BreakMinutes:        t.BreakMinutes,
		TrackingMode:        t.TrackingMode,
		HourlyRate:          t.HourlyRate,
		DailyRate:           t.DailyRate,
		RetentionPercentage: t.RetentionPercentage,
		TotalHours:          t.TotalHours,
		GrossAmount:         t.GrossAmount,
		NetAmount:           t.NetAmount,
		PaymentStatus:       t.PaymentStatus,
		Status:              t.Status,
		RejectionReason:     t.RejectionReason,
		IsSelfAssigned:      t.IsSelfAssigned,
		CheckInLatitude:     t.CheckInLatitude,
		CheckInLongitude:    t.CheckInLongitude,
		CheckInAccuracy:     t.CheckInAccuracy,
		CheckInAddress:      t.CheckInAddress,
		HasLunchBenefit:     t.HasLunchBenefit,
		HasDinnerBenefit:    t.HasDinnerBenefit,
		Notes:               t.Notes,
		CreatedAt:           t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           t.UpdatedAt.Format(time.RFC3339),
	}
}

type ListTimesheetResponse struct {
	Timesheets []TimesheetResponse `json:"timesheets"`
	Total      int64               `json:"total"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}
