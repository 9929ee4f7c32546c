package warehouse

import (
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/shift"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
)

// ShiftFilterColumns are the filterable columns of GET /warehouse/shifts.
var ShiftFilterColumns = query.Columns{
	"id":           {Expr: "s.id", Type: "uuid"},
	"crew_id":      {Expr: "s.crew_id", Type: "uuid"},
	"warehouse_id": {Expr: "s.warehouse_id", Type: "uuid"},
	"date":         {Expr: "s.date", Type: "date"},
	"start_time":   {Expr: "s.start_time"},
}

type WarehouseResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Address      *string  `json:"address,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	RadiusMeters int      `json:"radius_meters"`
	BackupCode   string   `json:"backup_code"`
}

func NewWarehouseResponse(w Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:           w.ID,
		Name:         w.Name,
		Address:      w.Address,
		Latitude:     w.Latitude,
		Longitude:    w.Longitude,
		RadiusMeters: w.RadiusMeters,
		BackupCode:   w.BackupCode,
	}
}

type ShiftResponse struct {
	ID            string  `json:"id"`
	CrewID        string  `json:"crew_id"`
	WarehouseID   string  `json:"warehouse_id"`
	WarehouseName *string `json:"warehouse_name,omitempty"`
	Date          string  `json:"date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Notes         *string `json:"notes,omitempty"`
}

func NewShiftResponse(s Shift) ShiftResponse {
	return ShiftResponse{
		ID:            s.ID,
		CrewID:        s.CrewID,
		WarehouseID:   s.WarehouseID,
		WarehouseName: s.WarehouseName,
		Date:          s.Date.Format(localtime.DateLayout),
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		Notes:         s.Notes,
	}
}

type CreateShiftRequest struct {
	CrewID      string  `json:"crew_id"`
	WarehouseID string  `json:"warehouse_id"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Notes       *string `json:"notes,omitempty"`
}

func (r *CreateShiftRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CrewID) {
		errs = append(errs, validator.ValidationError{Field: "crew_id", Message: "crew_id is required"})
	}
	if validator.IsEmpty(r.WarehouseID) {
		errs = append(errs, validator.ValidationError{Field: "warehouse_id", Message: "warehouse_id is required"})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
	}
	if !validator.IsValidClock(r.StartTime) {
		errs = append(errs, validator.ValidationError{Field: "start_time", Message: "start_time must be HH:MM"})
	}
	if !validator.IsValidClock(r.EndTime) {
		errs = append(errs, validator.ValidationError{Field: "end_time", Message: "end_time must be HH:MM"})
	}
	if len(errs) == 0 && r.StartTime == r.EndTime {
		errs = append(errs, validator.ValidationError{Field: "end_time", Message: "end_time must differ from start_time"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ShiftValidationResponse struct {
	ShiftID         string       `json:"shift_id"`
	Status          shift.Status `json:"status"`
	IsValid         bool         `json:"is_valid"`
	CanCheckIn      bool         `json:"can_check_in"`
	CanCheckOut     bool         `json:"can_check_out"`
	Reason          string       `json:"reason"`
	EarliestCheckIn string       `json:"earliest_check_in"`
}

func NewShiftValidationResponse(shiftID string, res shift.Result) ShiftValidationResponse {
	return ShiftValidationResponse{
		ShiftID:         shiftID,
		Status:          res.Status,
		IsValid:         res.IsValid,
		CanCheckIn:      res.CanCheckIn,
		CanCheckOut:     res.CanCheckOut,
		Reason:          res.Reason,
		EarliestCheckIn: res.EarliestCheckIn.HHMM(),
	}
}
