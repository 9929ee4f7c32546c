package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

// AttendanceService defines business logic for warehouse and extra shift attendance
type AttendanceService interface {
	// CheckIn validates timing, rejects duplicates and opens a record
	CheckIn(ctx context.Context, req CheckInRequest) (AttendanceResponse, error)

	StartBreak(ctx context.Context, req BreakRequest) (AttendanceResponse, error)
	EndBreak(ctx context.Context, req BreakRequest) (AttendanceResponse, error)

	// CheckOut closes the record and computes totals
	CheckOut(ctx context.Context, req CheckOutRequest) (AttendanceResponse, error)

	GetAttendance(ctx context.Context, id string) (AttendanceResponse, error)

	// ListAttendance filters the enriched view; crew members only see their own rows
	ListAttendance(ctx context.Context, f *query.Filter) (ListAttendanceResponse, error)

	// Rectify stores a justified correction on a completed record
	Rectify(ctx context.Context, req RectifyRequest) (AttendanceResponse, error)

	// AutoCheckout closes active records whose scheduled end plus grace has passed
	AutoCheckout(ctx context.Context, now time.Time, grace time.Duration) (int, error)
}
