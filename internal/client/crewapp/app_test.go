package crewapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/client/location"
	"github.com/cmlabs-hris/crew-attendance/internal/client/offline"
	"github.com/cmlabs-hris/crew-attendance/internal/client/remote"
	"github.com/cmlabs-hris/crew-attendance/internal/client/session"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/expense"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/warehouse"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const crewID = "crew-1"

type memorySlot struct {
	mu   sync.Mutex
	data []byte
}

func (m *memorySlot) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memorySlot) Store(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

type fakeAttendance struct {
	offline    bool
	checkInErr error
	shiftDay   string // day warehouse rows are filed under, like the server's shift day
	rows       []attendance.AttendanceResponse
	checkIns   []attendance.CheckInRequest
	checkOuts  []attendance.CheckOutRequest
	breaks     []attendance.BreakRequest
	filters    []*query.Filter
}

func (f *fakeAttendance) List(ctx context.Context, q *query.Filter) ([]attendance.AttendanceResponse, *remote.Meta, error) {
	if f.offline {
		return nil, nil, remote.ErrOffline
	}
	f.filters = append(f.filters, q)
	date, exact := strings.CutPrefix(q.Encode().Get("date"), "eq.")
	var open []attendance.AttendanceResponse
	for _, r := range f.rows {
		if r.Status != attendance.StatusActive || (exact && r.Date != date) {
			continue
		}
		open = append(open, r)
	}
	return open, &remote.Meta{TotalItems: int64(len(open))}, nil
}

func (f *fakeAttendance) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.AttendanceResponse, error) {
	if f.offline {
		return attendance.AttendanceResponse{}, remote.ErrOffline
	}
	if f.checkInErr != nil {
		return attendance.AttendanceResponse{}, f.checkInErr
	}
	f.checkIns = append(f.checkIns, req)
	row := attendance.AttendanceResponse{
		ID:          fmt.Sprintf("att-%d", len(f.checkIns)),
		CrewID:      crewID,
		WarehouseID: *req.WarehouseID,
		ShiftType:   req.ShiftType,
		Date:        "2026-03-10",
		CheckInTime: "08:00:00",
		Status:      attendance.StatusActive,
	}
	if req.ShiftType == attendance.ShiftWarehouse && f.shiftDay != "" {
		row.Date = f.shiftDay
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeAttendance) StartBreak(ctx context.Context, req attendance.BreakRequest) (attendance.AttendanceResponse, error) {
	return f.editBreak(req, func(start, end **string) bool {
		if *start != nil {
			return false
		}
		*start = req.Time
		return true
	})
}

func (f *fakeAttendance) EndBreak(ctx context.Context, req attendance.BreakRequest) (attendance.AttendanceResponse, error) {
	return f.editBreak(req, func(start, end **string) bool {
		if *start == nil || *end != nil {
			return false
		}
		*end = req.Time
		return true
	})
}

func (f *fakeAttendance) editBreak(req attendance.BreakRequest, apply func(start, end **string) bool) (attendance.AttendanceResponse, error) {
	if f.offline {
		return attendance.AttendanceResponse{}, remote.ErrOffline
	}
	f.breaks = append(f.breaks, req)
	for i := range f.rows {
		r := &f.rows[i]
		if r.ID != req.AttendanceID {
			continue
		}
		start, end := &r.LunchBreakStart, &r.LunchBreakEnd
		if req.Kind == attendance.BreakDinner {
			start, end = &r.DinnerBreakStart, &r.DinnerBreakEnd
		}
		if !apply(start, end) {
			return attendance.AttendanceResponse{}, &remote.APIError{Status: 409, Code: remote.CodeInvalidState}
		}
		if *start != nil && *end != nil {
			r.BreakMinutes += worktime.Elapsed(localtime.MustClock(**start), localtime.MustClock(**end))
		}
		return *r, nil
	}
	return attendance.AttendanceResponse{}, &remote.APIError{Status: 404, Code: "NOT_FOUND"}
}

func (f *fakeAttendance) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.AttendanceResponse, error) {
	if f.offline {
		return attendance.AttendanceResponse{}, remote.ErrOffline
	}
	f.checkOuts = append(f.checkOuts, req)
	for i := range f.rows {
		if f.rows[i].ID == req.AttendanceID {
			f.rows[i].Status = attendance.StatusCompleted
			return f.rows[i], nil
		}
	}
	return attendance.AttendanceResponse{}, &remote.APIError{Status: 404, Code: "NOT_FOUND"}
}

type fakeTimesheets struct {
	offline   bool
	checkIns  []timesheet.CheckInRequest
	checkOuts []timesheet.CheckOutRequest
	upserts   []timesheet.UpsertRequest
}

func (f *fakeTimesheets) List(ctx context.Context, q *query.Filter) ([]timesheet.TimesheetResponse, *remote.Meta, error) {
	if f.offline {
		return nil, nil, remote.ErrOffline
	}
	return nil, &remote.Meta{}, nil
}

func (f *fakeTimesheets) CheckIn(ctx context.Context, req timesheet.CheckInRequest) (timesheet.TimesheetResponse, error) {
	if f.offline {
		return timesheet.TimesheetResponse{}, remote.ErrOffline
	}
	f.checkIns = append(f.checkIns, req)
	return timesheet.TimesheetResponse{ID: *req.ID, CrewID: crewID, EventID: req.EventID, Date: "2026-03-10", StartTime: "08:00:00"}, nil
}

func (f *fakeTimesheets) CheckOut(ctx context.Context, req timesheet.CheckOutRequest) (timesheet.TimesheetResponse, error) {
	if f.offline {
		return timesheet.TimesheetResponse{}, remote.ErrOffline
	}
	f.checkOuts = append(f.checkOuts, req)
	return timesheet.TimesheetResponse{ID: req.ID}, nil
}

func (f *fakeTimesheets) Upsert(ctx context.Context, req timesheet.UpsertRequest) (timesheet.TimesheetResponse, error) {
	if f.offline {
		return timesheet.TimesheetResponse{}, remote.ErrOffline
	}
	f.upserts = append(f.upserts, req)
	return timesheet.TimesheetResponse{ID: req.ID}, nil
}

type fakeExpenses struct {
	offline bool
	created []expense.CreateRequest
}

func (f *fakeExpenses) Create(ctx context.Context, req expense.CreateRequest) (expense.ExpenseResponse, error) {
	if f.offline {
		return expense.ExpenseResponse{}, remote.ErrOffline
	}
	f.created = append(f.created, req)
	return expense.ExpenseResponse{ID: *req.ID}, nil
}

type fakeWarehouses struct {
	warehouses []warehouse.WarehouseResponse
	shifts     []warehouse.ShiftResponse
	filters    []*query.Filter
}

func (f *fakeWarehouses) List(ctx context.Context) ([]warehouse.WarehouseResponse, error) {
	return f.warehouses, nil
}

func (f *fakeWarehouses) Shifts(ctx context.Context, q *query.Filter) ([]warehouse.ShiftResponse, error) {
	f.filters = append(f.filters, q)
	return f.shifts, nil
}

type fixture struct {
	app        *App
	attendance *fakeAttendance
	timesheets *fakeTimesheets
	expenses   *fakeExpenses
	warehouses *fakeWarehouses
	sessions   *session.Manager
	queue      *offline.Queue
}

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	day, err := localtime.ParseDate(date)
	require.NoError(t, err)
	return localtime.Combine(day, localtime.MustClock(clock))
}

func newFixture(t *testing.T, geo location.Geolocator) *fixture {
	t.Helper()
	f := &fixture{
		attendance: &fakeAttendance{},
		timesheets: &fakeTimesheets{},
		expenses:   &fakeExpenses{},
		warehouses: &fakeWarehouses{},
	}
	f.sessions = session.NewManager(f.attendance, f.timesheets, crewID)

	q, err := offline.NewQueue(context.Background(), &memorySlot{})
	require.NoError(t, err)
	f.queue = q

	f.app = New(Deps{
		CrewID:     crewID,
		Attendance: f.attendance,
		Timesheets: f.timesheets,
		Expenses:   f.expenses,
		Warehouses: f.warehouses,
		Sessions:   f.sessions,
		Location:   location.NewService(geo, nil),
		Queue:      q,
		LocationOp: location.Options{RequiredAccuracy: 50, MaxRetries: 1},
	})
	f.app.now = func() time.Time { return at(t, "2026-03-10", "08:00") }
	return f
}

var goodGPS = location.StaticGeolocator{Latitude: 45.4642, Longitude: 9.19, Accuracy: 10}

func dayShift() warehouse.ShiftResponse {
	name := "Milano Nord"
	return warehouse.ShiftResponse{
		ID:            "shift-1",
		CrewID:        crewID,
		WarehouseID:   "wh-1",
		WarehouseName: &name,
		Date:          "2026-03-10",
		StartTime:     "08:15",
		EndTime:       "17:00",
	}
}

func TestCheckInWarehouseOnline(t *testing.T) {
	f := newFixture(t, goodGPS)

	out, err := f.app.CheckInWarehouse(context.Background(), dayShift(), nil)
	require.NoError(t, err)
	assert.False(t, out.Queued)
	assert.Equal(t, "att-1", out.Session.RecordID)

	require.Len(t, f.attendance.checkIns, 1)
	req := f.attendance.checkIns[0]
	assert.Equal(t, "shift-1", *req.ShiftID)
	assert.False(t, req.Forced)
	require.True(t, req.Position.HasFix())
	assert.InDelta(t, 45.4642, *req.Position.Latitude, 1e-9)
	assert.Nil(t, req.Date, "online check-ins take the server time")

	cur, ok := f.sessions.Current()
	require.True(t, ok)
	assert.Equal(t, "att-1", cur.ID)
	assert.Equal(t, session.TypeWarehouse, cur.Type)
}

func TestCheckInWarehouseOutsideWindow(t *testing.T) {
	f := newFixture(t, goodGPS)
	sh := dayShift()
	sh.StartTime, sh.EndTime = "14:00", "22:00"

	_, err := f.app.CheckInWarehouse(context.Background(), sh, nil)
	var te *TimingError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Result.CanCheckIn)
	assert.Empty(t, f.attendance.checkIns)
}

func TestCheckInWarehouseRefusesSecondSession(t *testing.T) {
	f := newFixture(t, goodGPS)
	f.attendance.rows = []attendance.AttendanceResponse{{
		ID: "att-9", CrewID: crewID, WarehouseID: "wh-1", ShiftType: attendance.ShiftWarehouse,
		Date: "2026-03-10", CheckInTime: "07:00:00", Status: attendance.StatusActive,
	}}

	_, err := f.app.CheckInWarehouse(context.Background(), dayShift(), nil)
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Empty(t, f.attendance.checkIns)
}

func TestCheckInConflictFromServer(t *testing.T) {
	f := newFixture(t, goodGPS)
	f.attendance.checkInErr = &remote.APIError{Status: 409, Code: remote.CodeAlreadyCheckedIn}

	_, err := f.app.CheckInWarehouse(context.Background(), dayShift(), nil)
	assert.ErrorIs(t, err, ErrAlreadyActive)
}

func TestCheckInWithoutGPSNeedsForce(t *testing.T) {
	f := newFixture(t, location.StaticGeolocator{})

	_, err := f.app.CheckInWarehouse(context.Background(), dayShift(), nil)
	var gpsErr *GPSError
	require.ErrorAs(t, err, &gpsErr)
	assert.ErrorIs(t, err, location.ErrPositionUnavailable)
	assert.Equal(t, location.UserMessage(location.ErrPositionUnavailable), err.Error())

	out, err := f.app.CheckInWarehouse(context.Background(), dayShift(), &Force{Reason: "GPS broken on site"})
	require.NoError(t, err)
	assert.False(t, out.Queued)
	require.Len(t, f.attendance.checkIns, 1)
	assert.True(t, f.attendance.checkIns[0].Forced)
	assert.Equal(t, "GPS broken on site", *f.attendance.checkIns[0].ForcedReason)
}

func TestBusyGuardRejectsConcurrentAction(t *testing.T) {
	f := newFixture(t, goodGPS)
	f.app.processing.Store(true)

	_, err := f.app.CheckInExtra(context.Background(), "wh-1", nil)
	assert.ErrorIs(t, err, ErrBusy)

	f.app.processing.Store(false)
	out, err := f.app.CheckInExtra(context.Background(), "wh-1", nil)
	require.NoError(t, err)
	assert.Equal(t, session.TypeExtra, out.Session.Type)
	assert.False(t, f.app.processing.Load())
}

func TestOfflineCheckInAndOutReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)
	f.attendance.offline = true
	f.timesheets.offline = true

	out, err := f.app.CheckInWarehouse(ctx, dayShift(), nil)
	require.NoError(t, err)
	assert.True(t, out.Queued)
	assert.True(t, out.Session.Pending)
	assert.Equal(t, "Milano Nord", out.Session.Label)
	assert.Equal(t, "08:00:00", out.Session.CheckInTime)
	assert.Equal(t, 1, f.queue.Len())

	out, err = f.app.CheckOut(ctx, "done")
	require.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Empty(t, f.sessions.Sessions())
	require.Equal(t, 2, f.queue.Len())

	f.attendance.offline = false
	f.timesheets.offline = false
	res := f.queue.Flush(ctx, f.app.Replayer())
	assert.Equal(t, offline.FlushResult{Succeeded: 2}, res)
	assert.Equal(t, 0, f.queue.Len())

	require.Len(t, f.attendance.checkIns, 1)
	in := f.attendance.checkIns[0]
	assert.Equal(t, "2026-03-10", *in.Date)
	assert.Equal(t, "08:00:00", *in.CheckInTime)

	require.Len(t, f.attendance.checkOuts, 1)
	assert.Equal(t, "att-1", f.attendance.checkOuts[0].AttendanceID)
	assert.Equal(t, "done", *f.attendance.checkOuts[0].Notes)
}

func TestAfterFlushPrunesReplayedSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)
	f.attendance.offline = true

	_, err := f.app.CheckInExtra(ctx, "wh-1", nil)
	require.NoError(t, err)
	require.Len(t, f.sessions.Sessions(), 1)

	f.attendance.offline = false
	res := f.queue.Flush(ctx, f.app.Replayer())
	f.app.AfterFlush(ctx, res)

	sessions := f.sessions.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "att-1", sessions[0].ID)
	assert.False(t, sessions[0].Pending)
}

func TestCheckInByQR(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)
	f.warehouses.warehouses = []warehouse.WarehouseResponse{
		{ID: "wh-2", Name: "Torino", BackupCode: "TO-77"},
		{ID: "wh-1", Name: "Milano Nord", BackupCode: "MI-01"},
	}
	late := dayShift()
	late.ID, late.StartTime, late.EndTime = "shift-late", "18:00", "23:00"
	f.warehouses.shifts = []warehouse.ShiftResponse{late, dayShift()}

	_, err := f.app.CheckInByQR(ctx, "MI-01")
	assert.ErrorIs(t, err, ErrScanIgnored, "scanner not armed")

	f.app.StartScanner()
	out, err := f.app.CheckInByQR(ctx, " mi-01 ")
	require.NoError(t, err)
	assert.Equal(t, "att-1", out.Session.RecordID)
	assert.Equal(t, "shift-1", *f.attendance.checkIns[0].ShiftID)

	require.Len(t, f.warehouses.filters, 1)
	v := f.warehouses.filters[0].Encode()
	assert.Equal(t, "eq.wh-1", v.Get("warehouse_id"))
	assert.Equal(t, "eq.2026-03-10", v.Get("date"))
	assert.Equal(t, "eq."+crewID, v.Get("crew_id"))

	_, err = f.app.CheckInByQR(ctx, "MI-01")
	assert.ErrorIs(t, err, ErrScanIgnored, "cooldown")
}

func TestCheckInByQRUnknownCodeAndNoShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)
	f.warehouses.warehouses = []warehouse.WarehouseResponse{{ID: "wh-1", BackupCode: "MI-01"}}
	f.app.StartScanner()

	_, err := f.app.CheckInByQR(ctx, "XX-00")
	assert.ErrorIs(t, err, ErrUnknownCode)

	f.app.now = func() time.Time { return at(t, "2026-03-10", "08:00:05") }
	_, err = f.app.CheckInByQR(ctx, "MI-01")
	assert.ErrorIs(t, err, ErrNoShiftToday)
}

func TestEventCheckInOfflineKeepsID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)
	f.attendance.offline = true
	f.timesheets.offline = true

	out, err := f.app.CheckInEvent(ctx, "event-1", true)
	require.NoError(t, err)
	assert.True(t, out.Queued)
	id := out.Session.RecordID
	require.NotEmpty(t, id)

	_, err = f.app.CheckOut(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, f.queue.Len())

	f.attendance.offline = false
	f.timesheets.offline = false
	res := f.queue.Flush(ctx, f.app.Replayer())
	assert.Equal(t, 2, res.Succeeded)

	require.Len(t, f.timesheets.upserts, 1)
	assert.Equal(t, id, f.timesheets.upserts[0].ID)
	assert.Equal(t, "08:00:00", f.timesheets.upserts[0].StartTime)
	assert.True(t, f.timesheets.upserts[0].IsSelfAssigned)
	require.Len(t, f.timesheets.checkOuts, 1)
	assert.Equal(t, id, f.timesheets.checkOuts[0].ID)
}

func TestSubmitExpenseOfflineQueues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)
	f.expenses.offline = true

	saved, err := f.app.SubmitExpense(ctx, expense.CreateRequest{
		Date:     "2026-03-10",
		Category: expense.CategoryFuel,
		Amount:   42.5,
	})
	require.NoError(t, err)
	assert.True(t, saved.Queued)
	assert.NotEmpty(t, saved.ID)

	f.expenses.offline = false
	res := f.queue.Flush(ctx, f.app.Replayer())
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, f.expenses.created, 1)
	assert.Equal(t, saved.ID, *f.expenses.created[0].ID)
	assert.Equal(t, 42.5, f.expenses.created[0].Amount)
}

func TestSubmitExpenseValidatesLocally(t *testing.T) {
	f := newFixture(t, goodGPS)

	_, err := f.app.SubmitExpense(context.Background(), expense.CreateRequest{Date: "2026-03-10", Category: expense.CategoryFuel})
	require.Error(t, err)
	assert.Empty(t, f.expenses.created)
	assert.Equal(t, 0, f.queue.Len())
}

func TestSaveTimesheetOnline(t *testing.T) {
	f := newFixture(t, goodGPS)
	end := "17:00"

	saved, err := f.app.SaveTimesheet(context.Background(), timesheet.UpsertRequest{
		EventID:   "event-1",
		Date:      "2026-03-10",
		StartTime: "09:00",
		EndTime:   &end,
	})
	require.NoError(t, err)
	assert.False(t, saved.Queued)
	require.Len(t, f.timesheets.upserts, 1)
	assert.Equal(t, saved.ID, f.timesheets.upserts[0].ID)
}

func TestReplayTreatsDuplicatesAsDelivered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)
	f.attendance.checkInErr = &remote.APIError{Status: 409, Code: remote.CodeAlreadyCheckedIn}

	wh := "wh-1"
	_, err := f.queue.Enqueue(ctx, offline.KindCheckIn, attendance.CheckInRequest{ShiftType: attendance.ShiftExtra, WarehouseID: &wh})
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, offline.Kind("unknown"), struct{}{})
	require.NoError(t, err)

	res := f.queue.Flush(ctx, f.app.Replayer())
	assert.Equal(t, offline.FlushResult{Succeeded: 1, Failed: 1}, res)

	pending := f.queue.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, offline.Kind("unknown"), pending[0].Kind)
	assert.Equal(t, 1, pending[0].Attempts)
}

func TestCheckOutWithoutSession(t *testing.T) {
	f := newFixture(t, goodGPS)
	_, err := f.app.CheckOut(context.Background(), "")
	assert.True(t, errors.Is(err, session.ErrNoSession))
}

func TestOfflineCheckInForNextDayShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)
	f.app.now = func() time.Time { return at(t, "2026-03-10", "22:00") }
	f.attendance.offline = true
	f.timesheets.offline = true

	night := dayShift()
	night.ID, night.Date, night.StartTime, night.EndTime = "shift-night", "2026-03-11", "01:00", "09:00"

	out, err := f.app.CheckInWarehouse(ctx, night, nil)
	require.NoError(t, err)
	require.True(t, out.Queued)
	assert.Equal(t, "2026-03-11", out.Session.Date, "the session belongs to the shift day")
	assert.Equal(t, "01:00", out.Session.ScheduledStart)
	assert.Equal(t, "22:00:00", out.Session.CheckInTime)
	assert.Equal(t, 90*time.Minute, out.Session.Elapsed(at(t, "2026-03-10", "23:30")))

	_, err = f.app.CheckOut(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, f.queue.Len())

	f.attendance.offline = false
	f.timesheets.offline = false
	f.attendance.shiftDay = "2026-03-11"
	res := f.queue.Flush(ctx, f.app.Replayer())
	assert.Equal(t, offline.FlushResult{Succeeded: 2}, res)

	require.Len(t, f.attendance.checkIns, 1)
	assert.Equal(t, "2026-03-10", *f.attendance.checkIns[0].Date, "the request carries the moment of check-in")

	require.NotEmpty(t, f.attendance.filters)
	lookup := f.attendance.filters[len(f.attendance.filters)-1].Encode()
	assert.Equal(t, "eq.2026-03-11", lookup.Get("date"))
	require.Len(t, f.attendance.checkOuts, 1)
	assert.Equal(t, "att-1", f.attendance.checkOuts[0].AttendanceID)
}

func TestBreaksOnline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)

	_, err := f.app.StartBreak(ctx, attendance.BreakLunch)
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = f.app.CheckInWarehouse(ctx, dayShift(), nil)
	require.NoError(t, err)

	f.app.now = func() time.Time { return at(t, "2026-03-10", "12:00") }
	out, err := f.app.StartBreak(ctx, attendance.BreakLunch)
	require.NoError(t, err)
	assert.False(t, out.Queued)
	require.Len(t, out.Session.Breaks, 1)
	assert.Equal(t, "12:00:00", out.Session.Breaks[0].Start)
	assert.Equal(t, "Milano Nord", out.Session.Label)

	f.app.now = func() time.Time { return at(t, "2026-03-10", "12:45") }
	out, err = f.app.EndBreak(ctx, attendance.BreakLunch)
	require.NoError(t, err)
	assert.Equal(t, 45, out.Session.BreakMinutes)

	cur, ok := f.sessions.Current()
	require.True(t, ok)
	assert.Equal(t, 45, cur.BreakMinutes)
	assert.Equal(t, "12:45:00", cur.Breaks[0].End)

	_, err = f.app.EndBreak(ctx, attendance.BreakLunch)
	assert.True(t, remote.HasCode(err, remote.CodeInvalidState))
	assert.Equal(t, 0, f.queue.Len())

	require.Len(t, f.attendance.breaks, 3)
	assert.Equal(t, "att-1", f.attendance.breaks[0].AttendanceID)
	assert.Equal(t, "12:00:00", *f.attendance.breaks[0].Time)
}

func TestBreaksOfflineReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)
	f.attendance.offline = true
	f.timesheets.offline = true

	_, err := f.app.CheckInWarehouse(ctx, dayShift(), nil)
	require.NoError(t, err)

	f.app.now = func() time.Time { return at(t, "2026-03-10", "12:00") }
	out, err := f.app.StartBreak(ctx, attendance.BreakLunch)
	require.NoError(t, err)
	assert.True(t, out.Queued)

	_, err = f.app.StartBreak(ctx, attendance.BreakLunch)
	assert.ErrorIs(t, err, attendance.ErrBreakAlreadyStarted)

	f.app.now = func() time.Time { return at(t, "2026-03-10", "12:30") }
	out, err = f.app.EndBreak(ctx, attendance.BreakLunch)
	require.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Equal(t, 30, out.Session.BreakMinutes)
	require.Equal(t, 3, f.queue.Len())

	f.attendance.offline = false
	f.timesheets.offline = false
	res := f.queue.Flush(ctx, f.app.Replayer())
	assert.Equal(t, offline.FlushResult{Succeeded: 3}, res)

	require.Len(t, f.attendance.breaks, 2)
	for _, b := range f.attendance.breaks {
		assert.Equal(t, "att-1", b.AttendanceID)
		assert.Equal(t, attendance.BreakLunch, b.Kind)
	}
	assert.Equal(t, "12:00:00", *f.attendance.breaks[0].Time)
	assert.Equal(t, "12:30:00", *f.attendance.breaks[1].Time)
	assert.Equal(t, 30, f.attendance.rows[0].BreakMinutes)
}

func TestReplayedBreakConflictIsDelivered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)
	f.attendance.rows = []attendance.AttendanceResponse{{
		ID: "att-9", CrewID: crewID, ShiftType: attendance.ShiftWarehouse, Date: "2026-03-10",
		CheckInTime: "08:00:00", Status: attendance.StatusActive, LunchBreakStart: strPtr("12:00:00"),
	}}
	_, err := f.queue.Enqueue(ctx, offline.KindBreak, breakPayload{
		SessionType: session.TypeWarehouse, RecordID: "att-9", Date: "2026-03-10",
		Kind: attendance.BreakLunch, Action: breakStart, Time: "12:00:00",
	})
	require.NoError(t, err)

	res := f.queue.Flush(ctx, f.app.Replayer())
	assert.Equal(t, offline.FlushResult{Succeeded: 1}, res)
}

func TestBreakOnEventSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, goodGPS)

	_, err := f.app.CheckInEvent(ctx, "event-1", false)
	require.NoError(t, err)

	_, err = f.app.StartBreak(ctx, attendance.BreakDinner)
	assert.ErrorIs(t, err, ErrBreakUnsupported)
}

func strPtr(s string) *string { return &s }
