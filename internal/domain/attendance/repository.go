package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

// AttendanceRepository defines data access methods for attendance records.
// Reads go through the enriched view so effective values and names come back.
type AttendanceRepository interface {
	// Create creates a new attendance record
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	// GetByID retrieves attendance by ID
	GetByID(ctx context.Context, id string) (Attendance, error)

	// GetActive returns the open record of a crew member for a shift type, or nil.
	// Used to prevent double check-in.
	GetActive(ctx context.Context, crewID string, shiftType ShiftType) (*Attendance, error)

	// LockActive serializes check-ins of a crew member for a shift type until
	// the surrounding transaction ends
	LockActive(ctx context.Context, crewID string, shiftType ShiftType) error

	// Update writes every mutable column of an existing record
	Update(ctx context.Context, attendance Attendance) error

	// List retrieves attendance records matching the filter
	List(ctx context.Context, f *query.Filter) ([]Attendance, int64, error)

	// ListByCrewAndRange returns a crew member's records with from <= date < to.
	// An empty crewID returns every member's records.
	ListByCrewAndRange(ctx context.Context, crewID string, from, to time.Time) ([]Attendance, error)

	// ListOpen returns every active record, oldest first
	ListOpen(ctx context.Context) ([]Attendance, error)
}
