package warehouse

import (
	"context"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

type WarehouseService interface {
	ListWarehouses(ctx context.Context) ([]WarehouseResponse, error)

	// ListShifts returns scheduled shifts; crew members only see their own
	ListShifts(ctx context.Context, f *query.Filter) ([]ShiftResponse, error)

	// CreateShift schedules a shift (supervisor)
	CreateShift(ctx context.Context, req CreateShiftRequest) (ShiftResponse, error)

	// ValidateShift runs the shift timing rules against the current moment
	ValidateShift(ctx context.Context, shiftID string) (ShiftValidationResponse, error)
}
