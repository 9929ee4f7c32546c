package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/expense"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/notification"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/overtime"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/report"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/warehouse"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
)

// Error codes shared with the device client.
const (
	CodeAlreadyCheckedIn  = "ALREADY_CHECKED_IN"
	CodeAlreadyCheckedOut = "ALREADY_CHECKED_OUT"
	CodeAlreadyRequested  = "ALREADY_REQUESTED"
	CodeAlreadyReviewed   = "ALREADY_REVIEWED"
	CodeInvalidState      = "INVALID_STATE"
	CodeNoOvertimeBenefit = "NO_OVERTIME_BENEFIT"
	CodeNoOvertime        = "NO_OVERTIME_AVAILABLE"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrRefreshTokenRevoked):
		Unauthorized(w, "Refresh token revoked")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, jwt.ErrMissingClaims):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrUnsupportedGrant):
		BadRequest(w, err.Error(), map[string]string{"grant_type": "must be password or refresh_token"})
	case errors.Is(err, auth.ErrUserNotFound):
		Unauthorized(w, auth.ErrInvalidCredentials.Error())

	// Access
	case errors.Is(err, crew.ErrSupervisorAccessRequired):
		Forbidden(w, "Supervisor access required")
	case errors.Is(err, attendance.ErrUnauthorized),
		errors.Is(err, timesheet.ErrNotOwner),
		errors.Is(err, warehouse.ErrShiftNotOwned):
		Forbidden(w, err.Error())

	// Not found
	case errors.Is(err, crew.ErrMemberNotFound),
		errors.Is(err, warehouse.ErrWarehouseNotFound),
		errors.Is(err, warehouse.ErrShiftNotFound),
		errors.Is(err, attendance.ErrAttendanceNotFound),
		errors.Is(err, timesheet.ErrTimesheetNotFound),
		errors.Is(err, timesheet.ErrEventNotFound),
		errors.Is(err, overtime.ErrRequestNotFound),
		errors.Is(err, expense.ErrExpenseNotFound),
		errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, err.Error())

	// Duplicates
	case errors.Is(err, attendance.ErrAlreadyCheckedIn), errors.Is(err, timesheet.ErrAlreadyCheckedIn):
		Conflict(w, CodeAlreadyCheckedIn, err.Error())
	case errors.Is(err, attendance.ErrAlreadyCheckedOut), errors.Is(err, timesheet.ErrAlreadyCheckedOut):
		Conflict(w, CodeAlreadyCheckedOut, err.Error())
	case errors.Is(err, overtime.ErrOvertimeAlreadyRequested):
		Conflict(w, CodeAlreadyRequested, err.Error())
	case errors.Is(err, overtime.ErrAlreadyReviewed), errors.Is(err, expense.ErrAlreadyReviewed):
		Conflict(w, CodeAlreadyReviewed, err.Error())

	// State
	case errors.Is(err, attendance.ErrNotCheckedIn),
		errors.Is(err, attendance.ErrBreakAlreadyStarted),
		errors.Is(err, attendance.ErrBreakNotStarted),
		errors.Is(err, attendance.ErrBreakAlreadyEnded),
		errors.Is(err, attendance.ErrNotCompleted),
		errors.Is(err, timesheet.ErrNotEditable),
		errors.Is(err, timesheet.ErrNotSubmittable),
		errors.Is(err, timesheet.ErrNotSubmitted),
		errors.Is(err, timesheet.ErrNotApproved),
		errors.Is(err, timesheet.ErrInvalidPaymentStep),
		errors.Is(err, timesheet.ErrOnlyDraftDeletable),
		errors.Is(err, overtime.ErrAttendanceNotCompleted):
		Conflict(w, CodeInvalidState, err.Error())

	// Overtime
	case errors.Is(err, overtime.ErrNoOvertimeBenefit):
		Unprocessable(w, CodeNoOvertimeBenefit, err.Error())
	case errors.Is(err, overtime.ErrNoOvertimeAvailable):
		Unprocessable(w, CodeNoOvertime, err.Error())

	// Input
	case errors.Is(err, timesheet.ErrRejectionReasonNeeded):
		ValidationError(w, map[string]string{"reason": err.Error()})
	case errors.Is(err, report.ErrInvalidMonth):
		BadRequest(w, err.Error(), map[string]string{"month": err.Error()})
	case errors.Is(err, expense.ErrReceiptTooLarge),
		errors.Is(err, expense.ErrReceiptNotImage):
		BadRequest(w, err.Error(), map[string]string{"receipt": err.Error()})
	case errors.Is(err, query.ErrUnknownColumn),
		errors.Is(err, query.ErrBadOperator),
		errors.Is(err, query.ErrBadValue):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
