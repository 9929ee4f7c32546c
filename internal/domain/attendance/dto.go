package attendance

import (
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
)

const (
	MinForcedReasonLength        = 5
	MinRectificationNoteLength   = 10
	maxNotesLength               = 1000
	maxAddressLength             = 500
	maxGPSAccuracyMeters float64 = 100000
)

// FilterColumns are the filterable columns of GET /attendance, backed by
// the enriched view.
var FilterColumns = query.Columns{
	"id":             {Expr: "wc.id", Type: "uuid"},
	"crew_id":        {Expr: "wc.crew_id", Type: "uuid"},
	"warehouse_id":   {Expr: "wc.warehouse_id", Type: "uuid"},
	"shift_id":       {Expr: "wc.shift_id", Type: "uuid"},
	"shift_type":     {Expr: "wc.shift_type"},
	"date":           {Expr: "wc.date", Type: "date"},
	"status":         {Expr: "wc.status"},
	"check_out_time": {Expr: "wc.check_out_time"},
	"forced_checkin": {Expr: "wc.forced_checkin", Type: "boolean"},
	"is_rectified":   {Expr: "wc.is_rectified", Type: "boolean"},
	"created_at":     {Expr: "wc.created_at", Type: "timestamptz"},
}

// ========================================
// ATTENDANCE DTOs
// ========================================

type PositionRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Address   *string  `json:"address,omitempty"`
}

func (p PositionRequest) HasFix() bool {
	return p.Latitude != nil && p.Longitude != nil
}

func (p PositionRequest) ToPosition() Position {
	return Position{Latitude: p.Latitude, Longitude: p.Longitude, Accuracy: p.Accuracy, Address: p.Address}
}

func (p PositionRequest) validate(prefix string) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if (p.Latitude == nil) != (p.Longitude == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   prefix + "latitude",
			Message: "latitude and longitude must be provided together",
		})
	}
	if p.HasFix() && !validator.IsValidCoordinates(*p.Latitude, *p.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   prefix + "latitude",
			Message: "latitude must be between -90 and 90 and longitude between -180 and 180",
		})
	}
	if p.Accuracy != nil && (*p.Accuracy < 0 || *p.Accuracy > maxGPSAccuracyMeters) {
		errs = append(errs, validator.ValidationError{
			Field:   prefix + "accuracy",
			Message: "accuracy must be a positive number of meters",
		})
	}
	if p.Address != nil && len(*p.Address) > maxAddressLength {
		errs = append(errs, validator.ValidationError{
			Field:   prefix + "address",
			Message: "address must not exceed 500 characters",
		})
	}
	return errs
}

type CheckInRequest struct {
	ShiftType        ShiftType       `json:"shift_type"`
	ShiftID          *string         `json:"shift_id,omitempty"`
	WarehouseID      *string         `json:"warehouse_id,omitempty"`
	Date             *string         `json:"date,omitempty"`          // replayed offline check-ins keep their day
	CheckInTime      *string         `json:"check_in_time,omitempty"` // and their time of day
	Position         PositionRequest `json:"position"`
	Forced           bool            `json:"forced"`
	ForcedReason     *string         `json:"forced_reason,omitempty"`
	HasLunchBenefit  bool            `json:"has_lunch_benefit"`
	HasDinnerBenefit bool            `json:"has_dinner_benefit"`
	Notes            *string         `json:"notes,omitempty"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	switch r.ShiftType {
	case ShiftWarehouse:
		if r.ShiftID == nil || validator.IsEmpty(*r.ShiftID) {
			errs = append(errs, validator.ValidationError{
				Field:   "shift_id",
				Message: "shift_id is required for warehouse shifts",
			})
		}
	case ShiftExtra:
		if r.WarehouseID == nil || validator.IsEmpty(*r.WarehouseID) {
			errs = append(errs, validator.ValidationError{
				Field:   "warehouse_id",
				Message: "warehouse_id is required for extra shifts",
			})
		}
	default:
		errs = append(errs, validator.ValidationError{
			Field:   "shift_type",
			Message: "shift_type must be warehouse or extra",
		})
	}

	if r.Date != nil {
		if _, ok := validator.IsValidDate(*r.Date); !ok {
			errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
		}
	}
	if r.CheckInTime != nil && !validator.IsValidClock(*r.CheckInTime) {
		errs = append(errs, validator.ValidationError{Field: "check_in_time", Message: "check_in_time must be HH:MM or HH:MM:SS"})
	}

	errs = append(errs, r.Position.validate("position.")...)

	if r.Forced {
		if r.ForcedReason == nil || !validator.MinLength(*r.ForcedReason, MinForcedReasonLength) {
			errs = append(errs, validator.ValidationError{
				Field:   "forced_reason",
				Message: "a reason of at least 5 characters is required for a check-in without GPS",
			})
		}
	} else if !r.Position.HasFix() {
		errs = append(errs, validator.ValidationError{
			Field:   "position",
			Message: "GPS position is required unless the check-in is forced",
		})
	}

	if r.Notes != nil && len(*r.Notes) > maxNotesLength {
		errs = append(errs, validator.ValidationError{Field: "notes", Message: "notes must not exceed 1000 characters"})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type BreakRequest struct {
	AttendanceID string    `json:"-"`
	Kind         BreakKind `json:"-"`
	Time         *string   `json:"time,omitempty"`
}

func (r *BreakRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AttendanceID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "attendance id is required"})
	}
	if r.Kind != BreakLunch && r.Kind != BreakDinner {
		errs = append(errs, validator.ValidationError{Field: "kind", Message: "break kind must be lunch or dinner"})
	}
	if r.Time != nil && !validator.IsValidClock(*r.Time) {
		errs = append(errs, validator.ValidationError{Field: "time", Message: "time must be HH:MM or HH:MM:SS"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CheckOutRequest struct {
	AttendanceID string          `json:"-"`
	CheckOutTime *string         `json:"check_out_time,omitempty"`
	Position     PositionRequest `json:"position"`
	Forced       bool            `json:"forced"`
	Notes        *string         `json:"notes,omitempty"`
}

func (r *CheckOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AttendanceID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "attendance id is required"})
	}
	if r.CheckOutTime != nil && !validator.IsValidClock(*r.CheckOutTime) {
		errs = append(errs, validator.ValidationError{Field: "check_out_time", Message: "check_out_time must be HH:MM or HH:MM:SS"})
	}
	errs = append(errs, r.Position.validate("position.")...)
	if r.Notes != nil && len(*r.Notes) > maxNotesLength {
		errs = append(errs, validator.ValidationError{Field: "notes", Message: "notes must not exceed 1000 characters"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RectifyRequest struct {
	AttendanceID string  `json:"-"`
	CheckInTime  string  `json:"check_in_time"`
	CheckOutTime string  `json:"check_out_time"`
	LunchStart   *string `json:"lunch_break_start,omitempty"`
	LunchEnd     *string `json:"lunch_break_end,omitempty"`
	DinnerStart  *string `json:"dinner_break_start,omitempty"`
	DinnerEnd    *string `json:"dinner_break_end,omitempty"`
	Note         string  `json:"note"`
}

func (r *RectifyRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AttendanceID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "attendance id is required"})
	}
	if !validator.IsValidClock(r.CheckInTime) {
		errs = append(errs, validator.ValidationError{Field: "check_in_time", Message: "check_in_time must be HH:MM or HH:MM:SS"})
	}
	if !validator.IsValidClock(r.CheckOutTime) {
		errs = append(errs, validator.ValidationError{Field: "check_out_time", Message: "check_out_time must be HH:MM or HH:MM:SS"})
	}
	errs = append(errs, validatePair("lunch_break", r.LunchStart, r.LunchEnd)...)
	errs = append(errs, validatePair("dinner_break", r.DinnerStart, r.DinnerEnd)...)
	if !validator.MinLength(r.Note, MinRectificationNoteLength) {
		errs = append(errs, validator.ValidationError{
			Field:   "note",
			Message: "a justification of at least 10 characters is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validatePair(field string, start, end *string) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if (start == nil) != (end == nil) {
		errs = append(errs, validator.ValidationError{Field: field, Message: "break start and end must be provided together"})
		return errs
	}
	if start != nil && (!validator.IsValidClock(*start) || !validator.IsValidClock(*end)) {
		errs = append(errs, validator.ValidationError{Field: field, Message: "break times must be HH:MM or HH:MM:SS"})
	}
	return errs
}

type AttendanceResponse struct {
	ID                string     `json:"id"`
	CrewID            string     `json:"crew_id"`
	CrewName          *string    `json:"crew_name,omitempty"`
	WarehouseID       string     `json:"warehouse_id"`
	WarehouseName     *string    `json:"warehouse_name,omitempty"`
	ShiftID           *string    `json:"shift_id,omitempty"`
	ShiftType         ShiftType  `json:"shift_type"`
	Date              string     `json:"date"`
	ScheduledStart    *string    `json:"scheduled_start,omitempty"`
	ScheduledEnd      *string    `json:"scheduled_end,omitempty"`
	CheckInTime       string     `json:"check_in_time"`
	CheckOutTime      *string    `json:"check_out_time,omitempty"`
	LunchBreakStart   *string    `json:"lunch_break_start,omitempty"`
	LunchBreakEnd     *string    `json:"lunch_break_end,omitempty"`
	DinnerBreakStart  *string    `json:"dinner_break_start,omitempty"`
	DinnerBreakEnd    *string    `json:"dinner_break_end,omitempty"`
	BreakMinutes      int        `json:"break_minutes"`
	HasLunchBenefit   bool       `json:"has_lunch_benefit"`
	HasDinnerBenefit  bool       `json:"has_dinner_benefit"`
	MealVoucher       bool       `json:"meal_voucher"`
	CheckInLatitude   *float64   `json:"check_in_latitude,omitempty"`
	CheckInLongitude  *float64   `json:"check_in_longitude,omitempty"`
	CheckInAccuracy   *float64   `json:"check_in_accuracy,omitempty"`
	CheckInAddress    *string    `json:"check_in_address,omitempty"`
	CheckOutLatitude  *float64   `json:"check_out_latitude,omitempty"`
	CheckOutLongitude *float64   `json:"check_out_longitude,omitempty"`
	CheckOutAccuracy  *float64   `json:"check_out_accuracy,omitempty"`
	CheckOutAddress   *string    `json:"check_out_address,omitempty"`
	DistanceFromSiteM *float64   `json:"distance_from_site_m,omitempty"`
	ForcedCheckIn     bool       `json:"forced_checkin"`
	ForcedReason      *string    `json:"forced_reason,omitempty"`
	Status            Status     `json:"status"`
	AutoCheckout      bool       `json:"auto_checkout"`
	TotalHours        *float64   `json:"total_hours,omitempty"`
	NetHours          *float64   `json:"net_hours,omitempty"`
	OvertimeMinutes   *int       `json:"overtime_minutes,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	IsRectified       bool       `json:"is_rectified"`
	RectificationNote *string    `json:"rectification_note,omitempty"`
	RectifiedAt       *time.Time `json:"rectified_at,omitempty"`
	EffectiveCheckIn  string     `json:"effective_check_in"`
	EffectiveCheckOut *string    `json:"effective_check_out,omitempty"`
	EffectiveNetHours *float64   `json:"effective_net_hours,omitempty"`
	CreatedAt         string     `json:"created_at"`
	UpdatedAt         string     `json:"updated_at"`
}

// NewAttendanceResponse maps an entity to its API representation.
func NewAttendanceResponse(a Attendance) AttendanceResponse {
	effIn, effOut, _ := a.Effective()
	return AttendanceResponse{
		ID:                a.ID,
		CrewID:            a.CrewID,
		CrewName:          a.CrewName,
		WarehouseID:       a.WarehouseID,
		WarehouseName:     a.WarehouseName,
		ShiftID:           a.ShiftID,
		ShiftType:         a.ShiftType,
		Date:              a.Date.Format(localtime.DateLayout),
		ScheduledStart:    a.ScheduledStart,
		ScheduledEnd:      a.ScheduledEnd,
		CheckInTime:       a.CheckInTime,
		CheckOutTime:      a.CheckOutTime,
		LunchBreakStart:   a.LunchBreakStart,
		LunchBreakEnd:     a.LunchBreakEnd,
		DinnerBreakStart:  a.DinnerBreakStart,
		DinnerBreakEnd:    a.DinnerBreakEnd,
		BreakMinutes:      a.BreakMinutes,
		HasLunchBenefit:   a.HasLunchBenefit,
		HasDinnerBenefit:  a.HasDinnerBenefit,
		MealVoucher:       a.MealVoucher,
		CheckInLatitude:   a.CheckIn.Latitude,
		CheckInLongitude:  a.CheckIn.Longitude,
		CheckInAccuracy:   a.CheckIn.Accuracy,
		CheckInAddress:    a.CheckIn.Address,
		CheckOutLatitude:  a.CheckOut.Latitude,
		CheckOutLongitude: a.CheckOut.Longitude,
		CheckOutAccuracy:  a.CheckOut.Accuracy,
		CheckOutAddress:   a.CheckOut.Address,
		DistanceFromSiteM: a.DistanceFromSiteM,
		ForcedCheckIn:     a.ForcedCheckIn,
		ForcedReason:      a.ForcedReason,
		Status:            a.Status,
		AutoCheckout:      a.AutoCheckout,
		TotalHours:        a.TotalHours,
		NetHours:          a.NetHours,
		OvertimeMinutes:   a.OvertimeMinutes,
		Notes:             a.Notes,
		IsRectified:       a.IsRectified(),
		RectificationNote: a.RectificationNote,
		RectifiedAt:       a.RectifiedAt,
		EffectiveCheckIn:  effIn,
		EffectiveCheckOut: effOut,
		EffectiveNetHours: a.EffectiveNetHours(),
		CreatedAt:         a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         a.UpdatedAt.Format(time.RFC3339),
	}
}

type ListAttendanceResponse struct {
	Attendances []AttendanceResponse `json:"attendances"`
	Total       int64                `json:"total"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}
