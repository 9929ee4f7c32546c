// Package crewapp runs the crew member's actions on a device: check-in by
// shift or QR code, breaks, event timesheets, check-out and expenses, each
// with an offline fallback.
package crewapp

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/client/location"
	"github.com/cmlabs-hris/crew-attendance/internal/client/offline"
	"github.com/cmlabs-hris/crew-attendance/internal/client/qrscan"
	"github.com/cmlabs-hris/crew-attendance/internal/client/remote"
	"github.com/cmlabs-hris/crew-attendance/internal/client/session"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/expense"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/warehouse"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/shift"
)

var (
	ErrBusy          = errors.New("another action is in progress")
	ErrAlreadyActive = errors.New("already checked in, refresh and try again")
	ErrScanIgnored   = errors.New("scan ignored")
	ErrUnknownCode   = errors.New("code does not match any warehouse")
	ErrNoShiftToday  = errors.New("no shift scheduled today at this warehouse")
)

// TimingError refuses an action the shift window does not allow.
type TimingError struct {
	Result shift.Result
}

func (e *TimingError) Error() string {
	return e.Result.Reason
}

// GPSError means no usable position. The caller may retry with Force.
type GPSError struct {
	Err error
}

func (e *GPSError) Error() string {
	return location.UserMessage(e.Err)
}

func (e *GPSError) Unwrap() error {
	return e.Err
}

// Force checks in without GPS. Supervisors are notified with the reason.
type Force struct {
	Reason string
}

// Outcome of a check-in or check-out. Queued means it was stored offline
// and will be replayed.
type Outcome struct {
	Session session.Session
	Queued  bool
}

// Saved reports where a form submission ended up.
type Saved struct {
	ID     string
	Queued bool
}

type AttendanceAPI interface {
	List(ctx context.Context, f *query.Filter) ([]attendance.AttendanceResponse, *remote.Meta, error)
	CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.AttendanceResponse, error)
	CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.AttendanceResponse, error)
	StartBreak(ctx context.Context, req attendance.BreakRequest) (attendance.AttendanceResponse, error)
	EndBreak(ctx context.Context, req attendance.BreakRequest) (attendance.AttendanceResponse, error)
}

type TimesheetAPI interface {
	CheckIn(ctx context.Context, req timesheet.CheckInRequest) (timesheet.TimesheetResponse, error)
	CheckOut(ctx context.Context, req timesheet.CheckOutRequest) (timesheet.TimesheetResponse, error)
	Upsert(ctx context.Context, req timesheet.UpsertRequest) (timesheet.TimesheetResponse, error)
}

type ExpenseAPI interface {
	Create(ctx context.Context, req expense.CreateRequest) (expense.ExpenseResponse, error)
}

type WarehouseAPI interface {
	List(ctx context.Context) ([]warehouse.WarehouseResponse, error)
	Shifts(ctx context.Context, f *query.Filter) ([]warehouse.ShiftResponse, error)
}

type Deps struct {
	CrewID     string
	Attendance AttendanceAPI
	Timesheets TimesheetAPI
	Expenses   ExpenseAPI
	Warehouses WarehouseAPI
	Sessions   *session.Manager
	Location   *location.Service
	Queue      *offline.Queue
	Scanner    *qrscan.Debouncer
	LocationOp location.Options
}

type App struct {
	crewID     string
	attendance AttendanceAPI
	timesheets TimesheetAPI
	expenses   ExpenseAPI
	warehouses WarehouseAPI
	sessions   *session.Manager
	location   *location.Service
	queue      *offline.Queue
	scanner    *qrscan.Debouncer
	locOpts    location.Options

	processing atomic.Bool
	now        func() time.Time
}

func New(d Deps) *App {
	scanner := d.Scanner
	if scanner == nil {
		scanner = qrscan.NewDebouncer(qrscan.DefaultCooldown, qrscan.DefaultContentWindow)
	}
	locOpts := d.LocationOp
	if locOpts == (location.Options{}) {
		locOpts = location.DefaultOptions()
	}
	return &App{
		crewID:     d.CrewID,
		attendance: d.Attendance,
		timesheets: d.Timesheets,
		expenses:   d.Expenses,
		warehouses: d.Warehouses,
		sessions:   d.Sessions,
		location:   d.Location,
		queue:      d.Queue,
		scanner:    scanner,
		locOpts:    locOpts,
		now:        time.Now,
	}
}

// begin is the double-tap guard. The returned func releases it.
func (a *App) begin() (func(), error) {
	if !a.processing.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return func() { a.processing.Store(false) }, nil
}

// refresh reloads sessions before a check-in. Offline, the local mirror is
// the best there is.
func (a *App) refresh(ctx context.Context) error {
	if _, err := a.sessions.Refresh(ctx); err != nil && !remote.IsOffline(err) {
		return err
	}
	return nil
}

// Replayer replays this app's offline items.
func (a *App) Replayer() *Replayer {
	return &Replayer{attendance: a.attendance, timesheets: a.timesheets, expenses: a.expenses, crewID: a.crewID}
}

// AfterFlush drops offline sessions that reached the API and reloads.
func (a *App) AfterFlush(ctx context.Context, res offline.FlushResult) {
	queued := make(map[string]bool)
	for _, item := range a.queue.Pending() {
		queued[item.ID] = true
	}
	a.sessions.PruneOffline(func(id string) bool { return queued[id] })

	if _, err := a.sessions.Refresh(ctx); err != nil {
		slog.Warn("session reload after sync failed", "error", err)
	}
}

func (a *App) StartScanner() { a.scanner.Start() }
func (a *App) StopScanner()  { a.scanner.Stop() }
