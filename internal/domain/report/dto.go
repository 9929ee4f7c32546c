package report

import (
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
)

// ========================================
// MONTHLY ATTENDANCE REPORT
// ========================================

type MonthlyAttendanceReportRequest struct {
	Month  string  `json:"month"`             // YYYY-MM
	CrewID *string `json:"crew_id,omitempty"` // supervisors only; crew members always get their own
}

// Period returns the first day of the month and the first day of the next.
func (r *MonthlyAttendanceReportRequest) Period() (time.Time, time.Time, error) {
	start, ok := validator.IsValidMonth(r.Month)
	if !ok {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	return start, start.AddDate(0, 1, 0), nil
}

func (r *MonthlyAttendanceReportRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, ok := validator.IsValidMonth(r.Month); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be in YYYY-MM format",
		})
	}
	if r.CrewID != nil && validator.IsEmpty(*r.CrewID) {
		errs = append(errs, validator.ValidationError{
			Field:   "crew_id",
			Message: "crew_id must not be empty",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type MonthlyAttendanceReport struct {
	Month       string `json:"month"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	GeneratedAt string `json:"generated_at"`

	Members []MonthlyAttendanceMember `json:"members"`
}

type MonthlyAttendanceMember struct {
	CrewID   string `json:"crew_id"`
	CrewName string `json:"crew_name"`

	Summary   AttendanceSummary    `json:"summary"`
	DailyLogs []AttendanceDailyLog `json:"daily_logs"`
}

type AttendanceSummary struct {
	TotalShifts             int     `json:"total_shifts"`
	WarehouseShifts         int     `json:"warehouse_shifts"`
	ExtraShifts             int     `json:"extra_shifts"`
	TotalNetHours           float64 `json:"total_net_hours"`
	OvertimeMinutes         int     `json:"overtime_minutes"`
	ApprovedOvertimeMinutes int     `json:"approved_overtime_minutes"`
	MealVouchers            int     `json:"meal_vouchers"`
	ForcedCheckIns          int     `json:"forced_checkins"`
	AutoCheckouts           int     `json:"auto_checkouts"`
	Rectified               int     `json:"rectified"`
	OpenShifts              int     `json:"open_shifts"`
}

// AttendanceDailyLog carries effective values, rectifications applied.
type AttendanceDailyLog struct {
	AttendanceID      string   `json:"attendance_id"`
	Date              string   `json:"date"`
	DayOfWeek         string   `json:"day_of_week"`
	Warehouse         string   `json:"warehouse"`
	ShiftType         string   `json:"shift_type"`
	ScheduledStart    *string  `json:"scheduled_start,omitempty"`
	ScheduledEnd      *string  `json:"scheduled_end,omitempty"`
	CheckIn           string   `json:"check_in"`
	CheckOut          *string  `json:"check_out,omitempty"`
	BreakMinutes      int      `json:"break_minutes"`
	NetHours          *float64 `json:"net_hours,omitempty"`
	OvertimeMinutes   int      `json:"overtime_minutes"`
	MealVoucher       bool     `json:"meal_voucher"`
	Forced            bool     `json:"forced"`
	AutoCheckout      bool     `json:"auto_checkout"`
	Rectified         bool     `json:"rectified"`
	RectificationNote *string  `json:"rectification_note,omitempty"`
}

// Workbook is a rendered spreadsheet ready to be streamed.
type Workbook struct {
	Filename string
	Content  []byte
}
