package crewapp

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/crew-attendance/internal/client/offline"
	"github.com/cmlabs-hris/crew-attendance/internal/client/remote"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/expense"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/google/uuid"
)

// timesheetPayload is a queued manual entry. UpsertRequest takes its id
// from the URL, so it is kept next to the body.
type timesheetPayload struct {
	ID    string                  `json:"id"`
	Entry timesheet.UpsertRequest `json:"entry"`
}

// SubmitExpense records an expense. Offline it is queued without its
// receipt, which can be attached once the entry exists.
func (a *App) SubmitExpense(ctx context.Context, req expense.CreateRequest) (Saved, error) {
	if req.ID == nil {
		uid, err := uuid.NewV7()
		if err != nil {
			return Saved{}, err
		}
		id := uid.String()
		req.ID = &id
	}
	if err := req.Validate(); err != nil {
		return Saved{}, err
	}

	res, err := a.expenses.Create(ctx, req)
	if err == nil {
		return Saved{ID: res.ID}, nil
	}
	if !remote.IsOffline(err) {
		return Saved{}, err
	}

	req.Receipt, req.ReceiptHeader = nil, nil
	if _, err := a.queue.Enqueue(ctx, offline.KindExpense, req); err != nil {
		return Saved{}, fmt.Errorf("failed to queue expense: %w", err)
	}
	return Saved{ID: *req.ID, Queued: true}, nil
}

// SaveTimesheet writes a manual event timesheet entry. Repeated saves of
// the same id update it.
func (a *App) SaveTimesheet(ctx context.Context, req timesheet.UpsertRequest) (Saved, error) {
	if req.ID == "" {
		uid, err := uuid.NewV7()
		if err != nil {
			return Saved{}, err
		}
		req.ID = uid.String()
	}
	if err := req.Validate(); err != nil {
		return Saved{}, err
	}

	res, err := a.timesheets.Upsert(ctx, req)
	if err == nil {
		return Saved{ID: res.ID}, nil
	}
	if !remote.IsOffline(err) {
		return Saved{}, err
	}

	if _, err := a.queue.Enqueue(ctx, offline.KindTimesheet, timesheetPayload{ID: req.ID, Entry: req}); err != nil {
		return Saved{}, fmt.Errorf("failed to queue timesheet: %w", err)
	}
	return Saved{ID: req.ID, Queued: true}, nil
}
