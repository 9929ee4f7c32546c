package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/client/location"
	"github.com/cmlabs-hris/crew-attendance/internal/client/remote"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttendance struct {
	rows      []attendance.AttendanceResponse
	filters   []*query.Filter
	checkouts []attendance.CheckOutRequest
	err       error
}

func (f *fakeAttendance) List(ctx context.Context, q *query.Filter) ([]attendance.AttendanceResponse, *remote.Meta, error) {
	f.filters = append(f.filters, q)
	return f.rows, nil, nil
}

func (f *fakeAttendance) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.AttendanceResponse, error) {
	if f.err != nil {
		return attendance.AttendanceResponse{}, f.err
	}
	f.checkouts = append(f.checkouts, req)
	return attendance.AttendanceResponse{ID: req.AttendanceID}, nil
}

type fakeTimesheets struct {
	rows      []timesheet.TimesheetResponse
	checkouts []timesheet.CheckOutRequest
}

func (f *fakeTimesheets) List(ctx context.Context, q *query.Filter) ([]timesheet.TimesheetResponse, *remote.Meta, error) {
	return f.rows, nil, nil
}

func (f *fakeTimesheets) CheckOut(ctx context.Context, req timesheet.CheckOutRequest) (timesheet.TimesheetResponse, error) {
	f.checkouts = append(f.checkouts, req)
	return timesheet.TimesheetResponse{ID: req.ID}, nil
}

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	day, err := localtime.ParseDate(date)
	require.NoError(t, err)
	return localtime.Combine(day, localtime.MustClock(clock))
}

func strPtr(s string) *string { return &s }

func newTestManager(t *testing.T, now time.Time, att *fakeAttendance, ts *fakeTimesheets) *Manager {
	t.Helper()
	m := NewManager(att, ts, "crew-1")
	m.now = func() time.Time { return now }
	return m
}

func TestLoadActiveSessionIsIdempotent(t *testing.T) {
	att := &fakeAttendance{rows: []attendance.AttendanceResponse{
		{ID: "a1", CrewID: "crew-1", ShiftType: attendance.ShiftWarehouse, Date: "2026-10-18", CheckInTime: "08:55:00", WarehouseName: strPtr("Magazzino Nord")},
	}}
	ts := &fakeTimesheets{rows: []timesheet.TimesheetResponse{
		{ID: "t1", CrewID: "crew-1", EventID: "e1", Date: "2026-10-18", StartTime: "10:00:00"},
		{ID: "t2", CrewID: "crew-1", EventID: "e2", Date: "2026-10-18", StartTime: "11:00:00"},
	}}
	m := newTestManager(t, at(t, "2026-10-18", "12:00"), att, ts)

	first, err := m.LoadActiveSession(context.Background())
	require.NoError(t, err)
	second, err := m.LoadActiveSession(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, second, 3)
	assert.Equal(t, "Magazzino Nord", second[0].Label)

	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "a1", cur.ID)

	vals := att.filters[0].Encode()
	assert.Equal(t, "in.(2026-10-18,2026-10-19)", vals.Get("date"))
	assert.Equal(t, "is.null", vals.Get("check_out_time"))
}

func TestLoadKeepsPendingOfflineSessions(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "12:00"), &fakeAttendance{}, &fakeTimesheets{})
	m.StartSession(Session{ID: "q1", Type: TypeWarehouse, Date: "2026-10-18", CheckInTime: "09:00:00", Pending: true})

	sessions, err := m.LoadActiveSession(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Pending)
}

func TestStartAndEndSession(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "12:00"), &fakeAttendance{}, &fakeTimesheets{})

	m.StartSession(Session{ID: "a1", Type: TypeWarehouse})
	m.StartSession(Session{ID: "t1", Type: TypeEvent})
	m.StartSession(Session{ID: "t1", Type: TypeEvent, Label: "replaced"})
	require.Len(t, m.Sessions(), 2)

	cur, _ := m.Current()
	assert.Equal(t, "replaced", cur.Label)

	m.EndSession("")
	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "a1", cur.ID, "next session is nominated")

	m.EndSession("a1")
	_, ok = m.Current()
	assert.False(t, ok)
	assert.Empty(t, m.Sessions())
}

func TestSessionsReturnsCopies(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "12:00"), &fakeAttendance{}, &fakeTimesheets{})
	m.StartSession(Session{ID: "a1", Breaks: []Break{{Kind: attendance.BreakLunch, Start: "12:00:00"}}})

	got := m.Sessions()
	got[0].Breaks[0].Start = "00:00:00"
	got[0].Label = "mutated"

	again := m.Sessions()
	assert.Equal(t, "12:00:00", again[0].Breaks[0].Start)
	assert.Empty(t, again[0].Label)
}

func TestPrepareCheckOutNetMinutes(t *testing.T) {
	cases := []struct {
		name    string
		checkIn string
		breaks  int
		date    string
		now     time.Time
		want    int
	}{
		{"day shift with lunch", "09:00:00", 60, "2026-10-18", at(t, "2026-10-18", "17:30"), 450},
		{"overnight", "22:00:00", 0, "2026-10-17", at(t, "2026-10-18", "02:00"), 240},
		{"breaks longer than work", "09:00:00", 90, "2026-10-18", at(t, "2026-10-18", "10:00"), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(t, tc.now, &fakeAttendance{}, &fakeTimesheets{})
			m.StartSession(Session{ID: "a1", RecordID: "a1", Type: TypeWarehouse, Date: tc.date, CheckInTime: tc.checkIn, BreakMinutes: tc.breaks})

			c, err := m.PrepareCheckOut(nil, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.NetMinutes)
			require.NotNil(t, c.Attendance)
			assert.True(t, c.Attendance.Forced, "no location means a forced check-out")
		})
	}
}

func TestManualCheckOut(t *testing.T) {
	now := at(t, "2026-10-18", "17:30")
	att := &fakeAttendance{}
	m := newTestManager(t, now, att, &fakeTimesheets{})

	assert.False(t, m.ManualCheckOut(context.Background(), nil, ""), "nothing to check out")

	m.StartSession(Session{ID: "a1", RecordID: "a1", Type: TypeWarehouse, Date: "2026-10-18", CheckInTime: "09:00:00"})
	loc := &location.Location{Latitude: 45.46, Longitude: 9.19, Accuracy: 12, Address: "Via Roma 1"}
	assert.True(t, m.ManualCheckOut(context.Background(), loc, "done"))

	require.Len(t, att.checkouts, 1)
	req := att.checkouts[0]
	assert.Equal(t, "a1", req.AttendanceID)
	assert.Equal(t, "17:30:00", *req.CheckOutTime)
	assert.Equal(t, "done", *req.Notes)
	assert.Equal(t, 45.46, *req.Position.Latitude)
	assert.Empty(t, m.Sessions())
}

func TestManualCheckOutReportsRemoteFailure(t *testing.T) {
	att := &fakeAttendance{err: errors.New("boom")}
	m := newTestManager(t, at(t, "2026-10-18", "17:30"), att, &fakeTimesheets{})
	m.StartSession(Session{ID: "a1", RecordID: "a1", Type: TypeWarehouse, Date: "2026-10-18", CheckInTime: "09:00:00"})

	assert.False(t, m.ManualCheckOut(context.Background(), nil, ""))
	assert.Len(t, m.Sessions(), 1, "session stays when the API refused")
}

func TestManualCheckOutEvent(t *testing.T) {
	ts := &fakeTimesheets{}
	m := newTestManager(t, at(t, "2026-10-18", "23:00"), &fakeAttendance{}, ts)
	m.StartSession(Session{ID: "t1", RecordID: "t1", Type: TypeEvent, Date: "2026-10-18", CheckInTime: "18:00:00"})

	require.True(t, m.ManualCheckOut(context.Background(), nil, ""))
	require.Len(t, ts.checkouts, 1)
	assert.Equal(t, "23:00:00", *ts.checkouts[0].EndTime)
}

func TestTickerElapsed(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "09:00"), &fakeAttendance{}, &fakeTimesheets{})

	idle := m.ticker.compute(at(t, "2026-10-18", "09:00"))
	assert.Equal(t, "00:00:00", idle.Current)

	m.StartSession(Session{ID: "a1", Date: "2026-10-18", CheckInTime: "08:55:00"})
	m.StartSession(Session{ID: "n1", Date: "2026-10-17", CheckInTime: "22:00:00"})

	tick := m.ticker.compute(at(t, "2026-10-18", "09:00:05"))
	assert.Equal(t, "00:05:05", tick.Elapsed["a1"])
	assert.Equal(t, "11:00:05", tick.Elapsed["n1"], "overnight sessions keep counting past midnight")
	assert.Equal(t, "11:00:05", tick.Current)

	m.ticker.publish(tick)
	assert.Equal(t, "11:00:05", m.Elapsed())
}

func TestSubscribeReceivesTicks(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "09:00"), &fakeAttendance{}, &fakeTimesheets{})
	ch, cancel := m.Subscribe()

	m.ticker.publish(Tick{Current: "00:00:01"})
	got := <-ch
	assert.Equal(t, "00:00:01", got.Current)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestRunStopsOnCancel(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "09:00"), &fakeAttendance{}, &fakeTimesheets{})
	ch, _ := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	first := <-ch
	assert.Equal(t, "00:00:00", first.Current)
	cancel()
	<-done
}

func TestPruneOffline(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "12:00"), &fakeAttendance{}, &fakeTimesheets{})
	m.StartSession(Session{ID: "q1", Pending: true, QueueID: "q1"})
	m.StartSession(Session{ID: "t1", Pending: true, QueueID: "q2"})
	m.StartSession(Session{ID: "a1"})

	m.PruneOffline(func(id string) bool { return id == "q2" })

	var ids []string
	for _, s := range m.Sessions() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"t1", "a1"}, ids)
}

func TestElapsedAcrossShiftDay(t *testing.T) {
	cases := []struct {
		name    string
		session Session
		now     time.Time
		want    string
	}{
		{
			"early check-in the evening before",
			Session{Date: "2026-10-19", CheckInTime: "22:00:00"},
			at(t, "2026-10-18", "23:30"), "01:30:00",
		},
		{
			"early check-in counted into the shift day",
			Session{Date: "2026-10-19", CheckInTime: "22:00:00"},
			at(t, "2026-10-19", "08:00"), "10:00:00",
		},
		{
			"late check-in the morning after",
			Session{Date: "2026-10-18", CheckInTime: "00:30:00"},
			at(t, "2026-10-19", "01:00"), "00:30:00",
		},
		{
			"scheduled night shift checked in early",
			Session{Date: "2026-10-19", ScheduledStart: "01:00:00", CheckInTime: "22:00:00"},
			at(t, "2026-10-18", "23:30"), "01:30:00",
		},
		{
			"scheduled evening shift checked in after midnight",
			Session{Date: "2026-10-18", ScheduledStart: "20:00:00", CheckInTime: "00:30:00"},
			at(t, "2026-10-19", "01:00"), "00:30:00",
		},
		{
			"scheduled day shift",
			Session{Date: "2026-10-18", ScheduledStart: "09:00:00", CheckInTime: "08:55:00"},
			at(t, "2026-10-18", "17:00"), "08:05:00",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(t, tc.now, &fakeAttendance{}, &fakeTimesheets{})
			s := tc.session
			s.ID = "a1"
			m.StartSession(s)

			tick := m.ticker.compute(tc.now)
			assert.Equal(t, tc.want, tick.Elapsed["a1"])
			assert.Equal(t, tc.want, tick.Current)
		})
	}
}

func TestFromAttendanceKeepsSchedule(t *testing.T) {
	s := FromAttendance(attendance.AttendanceResponse{
		ID: "a1", ShiftType: attendance.ShiftWarehouse, Date: "2026-10-19", CheckInTime: "22:00:00",
		ScheduledStart: strPtr("01:00:00"), ScheduledEnd: strPtr("09:00:00"),
	})
	assert.Equal(t, "01:00:00", s.ScheduledStart)
	assert.Equal(t, "09:00:00", s.ScheduledEnd)

	start, ok := s.StartedAt(at(t, "2026-10-19", "02:00"))
	require.True(t, ok)
	assert.Equal(t, at(t, "2026-10-18", "22:00"), start)
}

func TestLocalBreaks(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "14:00"), &fakeAttendance{}, &fakeTimesheets{})
	m.StartSession(Session{ID: "q1", Type: TypeWarehouse, Date: "2026-10-18", CheckInTime: "09:00:00", Pending: true})

	_, err := m.EndBreak("q1", attendance.BreakLunch, localtime.MustClock("12:00"))
	assert.ErrorIs(t, err, attendance.ErrBreakNotStarted)

	s, err := m.StartBreak("q1", attendance.BreakLunch, localtime.MustClock("12:00"))
	require.NoError(t, err)
	require.Len(t, s.Breaks, 1)
	assert.Equal(t, "12:00:00", s.Breaks[0].Start)
	assert.Zero(t, s.BreakMinutes, "running breaks are not counted yet")

	_, err = m.StartBreak("q1", attendance.BreakLunch, localtime.MustClock("12:05"))
	assert.ErrorIs(t, err, attendance.ErrBreakAlreadyStarted)

	s, err = m.EndBreak("q1", attendance.BreakLunch, localtime.MustClock("12:45"))
	require.NoError(t, err)
	assert.Equal(t, 45, s.BreakMinutes)

	_, err = m.EndBreak("q1", attendance.BreakLunch, localtime.MustClock("13:00"))
	assert.ErrorIs(t, err, attendance.ErrBreakAlreadyEnded)

	_, err = m.StartBreak("missing", attendance.BreakDinner, localtime.MustClock("19:00"))
	assert.ErrorIs(t, err, ErrNoSession)

	cur, _ := m.Current()
	assert.Equal(t, 45, cur.BreakMinutes)
}

func TestCheckOutAfterBreak(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "17:30"), &fakeAttendance{}, &fakeTimesheets{})
	m.StartSession(Session{ID: "a1", RecordID: "a1", Type: TypeWarehouse, Date: "2026-10-18", CheckInTime: "09:00:00"})

	_, err := m.StartBreak("a1", attendance.BreakLunch, localtime.MustClock("12:30"))
	require.NoError(t, err)
	_, err = m.EndBreak("a1", attendance.BreakLunch, localtime.MustClock("13:30"))
	require.NoError(t, err)

	c, err := m.PrepareCheckOut(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 450, c.NetMinutes)
}

func TestCheckOutDuringBreak(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "20:00"), &fakeAttendance{}, &fakeTimesheets{})
	m.StartSession(Session{ID: "a1", RecordID: "a1", Type: TypeWarehouse, Date: "2026-10-18", CheckInTime: "09:00:00", BreakMinutes: 60,
		Breaks: []Break{
			{Kind: attendance.BreakLunch, Start: "12:00:00", End: "13:00:00"},
			{Kind: attendance.BreakDinner, Start: "19:30:00"},
		}})

	c, err := m.PrepareCheckOut(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 11*60-60-30, c.NetMinutes, "the running dinner break counts up to check-out")
}

func TestReplaceKeepsLocalFields(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "12:00"), &fakeAttendance{}, &fakeTimesheets{})
	m.StartSession(Session{ID: "a1", Label: "Milano Nord", ScheduledStart: "09:00:00"})
	m.StartSession(Session{ID: "t1", Type: TypeEvent})

	require.True(t, m.Replace(Session{ID: "a1", Type: TypeWarehouse, BreakMinutes: 30}))
	assert.False(t, m.Replace(Session{ID: "missing"}))

	s, ok := m.Find(TypeWarehouse, nil)
	require.True(t, ok)
	assert.Equal(t, "Milano Nord", s.Label)
	assert.Equal(t, "09:00:00", s.ScheduledStart)
	assert.Equal(t, 30, s.BreakMinutes)

	cur, _ := m.Current()
	assert.Equal(t, "t1", cur.ID)
}

func TestSubscribeAfterRunReturns(t *testing.T) {
	m := newTestManager(t, at(t, "2026-10-18", "09:00"), &fakeAttendance{}, &fakeTimesheets{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.Run(ctx)

	ch, stop := m.Subscribe()
	defer stop()

	var frames int
	for range ch {
		frames++
	}
	assert.Equal(t, 1, frames, "the last frame, then closed")
}
