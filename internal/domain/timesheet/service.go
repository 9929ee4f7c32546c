package timesheet

import (
	"context"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

// TimesheetService defines business logic for event timesheets
type TimesheetService interface {
	ListEvents(ctx context.Context) ([]EventResponse, error)

	// CheckIn opens a draft entry starting now (or at the replayed time)
	CheckIn(ctx context.Context, req CheckInRequest) (TimesheetResponse, error)
	CheckOut(ctx context.Context, req CheckOutRequest) (TimesheetResponse, error)

	// Upsert inserts a manual entry or updates an editable one
	Upsert(ctx context.Context, req UpsertRequest) (TimesheetResponse, error)

	Submit(ctx context.Context, id string) (TimesheetResponse, error)
	Approve(ctx context.Context, id string) (TimesheetResponse, error)
	Reject(ctx context.Context, req RejectRequest) (TimesheetResponse, error)

	// AdvancePayment moves the payment lifecycle one step forward
	AdvancePayment(ctx context.Context, req PaymentRequest) (TimesheetResponse, error)

	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f *query.Filter) (ListTimesheetResponse, error)
}
