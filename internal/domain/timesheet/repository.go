package timesheet

import (
	"context"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

type EventRepository interface {
	GetByID(ctx context.Context, id string) (Event, error)
	// ListActive returns events whose dates include day
	ListActive(ctx context.Context, day time.Time) ([]Event, error)
}

type TimesheetRepository interface {
	Create(ctx context.Context, t Timesheet) (Timesheet, error)
	GetByID(ctx context.Context, id string) (Timesheet, error)
	// GetOpen returns the entry of a crew member for an event and day with no end time, or nil
	GetOpen(ctx context.Context, crewID, eventID string, day time.Time) (*Timesheet, error)
	Update(ctx context.Context, t Timesheet) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f *query.Filter) ([]Timesheet, int64, error)
}
