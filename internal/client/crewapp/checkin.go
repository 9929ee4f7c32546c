package crewapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/crew-attendance/internal/client/offline"
	"github.com/cmlabs-hris/crew-attendance/internal/client/qrscan"
	"github.com/cmlabs-hris/crew-attendance/internal/client/remote"
	"github.com/cmlabs-hris/crew-attendance/internal/client/session"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/warehouse"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/shift"
	"github.com/google/uuid"
)

// CheckInWarehouse starts a scheduled warehouse shift. The shift window is
// checked locally first, then a position is acquired unless force is set.
func (a *App) CheckInWarehouse(ctx context.Context, sh warehouse.ShiftResponse, force *Force) (Outcome, error) {
	done, err := a.begin()
	if err != nil {
		return Outcome{}, err
	}
	defer done()

	return a.checkInWarehouse(ctx, sh, force)
}

func (a *App) checkInWarehouse(ctx context.Context, sh warehouse.ShiftResponse, force *Force) (Outcome, error) {
	w, err := shift.NewWindow(sh.Date, sh.StartTime, sh.EndTime)
	if err != nil {
		return Outcome{}, fmt.Errorf("shift %s: %w", sh.ID, err)
	}
	if res := shift.Validate(w, a.now()); !res.CanCheckIn {
		return Outcome{}, &TimingError{Result: res}
	}

	shiftID, warehouseID := sh.ID, sh.WarehouseID
	req := attendance.CheckInRequest{
		ShiftType:   attendance.ShiftWarehouse,
		ShiftID:     &shiftID,
		WarehouseID: &warehouseID,
	}
	label := sh.WarehouseID
	if sh.WarehouseName != nil {
		label = *sh.WarehouseName
	}
	// the row belongs to the shift day even when checked in the evening before
	tmpl := session.Session{
		Type:           session.TypeWarehouse,
		Label:          label,
		Date:           sh.Date,
		ScheduledStart: sh.StartTime,
		ScheduledEnd:   sh.EndTime,
	}
	return a.checkInAttendance(ctx, req, tmpl, force)
}

// CheckInExtra starts an unscheduled shift at a warehouse.
func (a *App) CheckInExtra(ctx context.Context, warehouseID string, force *Force) (Outcome, error) {
	done, err := a.begin()
	if err != nil {
		return Outcome{}, err
	}
	defer done()

	req := attendance.CheckInRequest{
		ShiftType:   attendance.ShiftExtra,
		WarehouseID: &warehouseID,
	}
	return a.checkInAttendance(ctx, req, session.Session{Type: session.TypeExtra, Label: warehouseID}, force)
}

// checkInAttendance sends req and falls back to the queue. tmpl carries
// what the request does not, such as the label and the shift day.
func (a *App) checkInAttendance(ctx context.Context, req attendance.CheckInRequest, tmpl session.Session, force *Force) (Outcome, error) {
	if force != nil {
		reason := force.Reason
		req.Forced = true
		req.ForcedReason = &reason
	} else {
		loc, err := a.location.Acquire(ctx, a.locOpts)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}
			return Outcome{}, &GPSError{Err: err}
		}
		lat, lon, acc, addr := loc.Latitude, loc.Longitude, loc.Accuracy, loc.Address
		req.Position = attendance.PositionRequest{Latitude: &lat, Longitude: &lon, Accuracy: &acc, Address: &addr}
	}

	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	if err := a.refresh(ctx); err != nil {
		return Outcome{}, err
	}
	if _, ok := a.sessions.Find(tmpl.Type, nil); ok {
		return Outcome{}, ErrAlreadyActive
	}

	res, err := a.attendance.CheckIn(ctx, req)
	switch {
	case err == nil:
		s := session.FromAttendance(res)
		if s.Label == "" {
			s.Label = tmpl.Label
		}
		if s.ScheduledStart == "" {
			s.ScheduledStart, s.ScheduledEnd = tmpl.ScheduledStart, tmpl.ScheduledEnd
		}
		a.sessions.StartSession(s)
		return Outcome{Session: s}, nil
	case remote.HasCode(err, remote.CodeAlreadyCheckedIn):
		return Outcome{}, ErrAlreadyActive
	case !remote.IsOffline(err):
		return Outcome{}, err
	}

	now := a.now()
	date, clock := localtime.DateString(now), localtime.ClockOf(now).String()
	req.Date, req.CheckInTime = &date, &clock

	item, err := a.queue.Enqueue(ctx, offline.KindCheckIn, req)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to queue check-in: %w", err)
	}
	s := tmpl
	s.ID, s.QueueID, s.Pending = item.ID, item.ID, true
	s.CrewID = a.crewID
	s.WarehouseID = deref(req.WarehouseID)
	s.CheckInTime = clock
	if s.Date == "" {
		s.Date = date
	}
	a.sessions.StartSession(s)
	slog.Info("check-in queued offline", "queue_id", item.ID, "shift_type", req.ShiftType)
	return Outcome{Session: s, Queued: true}, nil
}

// CheckInByQR resolves a scanned warehouse code to today's shift there and
// checks in. Repeated reads of the same code are ignored.
func (a *App) CheckInByQR(ctx context.Context, text string) (Outcome, error) {
	if !a.scanner.Accept(text, a.now()) {
		return Outcome{}, ErrScanIgnored
	}

	done, err := a.begin()
	if err != nil {
		return Outcome{}, err
	}
	defer done()

	warehouses, err := a.warehouses.List(ctx)
	if err != nil {
		return Outcome{}, err
	}
	wh, ok := qrscan.MatchWarehouse(text, warehouses)
	if !ok {
		return Outcome{}, ErrUnknownCode
	}

	f := query.New().Eq("warehouse_id", wh.ID).Eq("date", localtime.Today(a.now()))
	if a.crewID != "" {
		f.Eq("crew_id", a.crewID)
	}
	shifts, err := a.warehouses.Shifts(ctx, f)
	if err != nil {
		return Outcome{}, err
	}
	if len(shifts) == 0 {
		return Outcome{}, ErrNoShiftToday
	}

	var refused *TimingError
	for _, sh := range shifts {
		if sh.WarehouseName == nil {
			name := wh.Name
			sh.WarehouseName = &name
		}
		out, err := a.checkInWarehouse(ctx, sh, nil)
		var te *TimingError
		if errors.As(err, &te) {
			if refused == nil {
				refused = te
			}
			continue
		}
		return out, err
	}
	return Outcome{}, refused
}

// CheckInEvent opens an event timesheet. The id is generated here so a
// queued entry and its later check-out refer to the same row.
func (a *App) CheckInEvent(ctx context.Context, eventID string, selfAssigned bool) (Outcome, error) {
	done, err := a.begin()
	if err != nil {
		return Outcome{}, err
	}
	defer done()

	uid, err := uuid.NewV7()
	if err != nil {
		return Outcome{}, err
	}
	id := uid.String()

	req := timesheet.CheckInRequest{ID: &id, EventID: eventID, IsSelfAssigned: selfAssigned}
	// position is optional for events
	if loc, err := a.location.Acquire(ctx, a.locOpts); err == nil {
		lat, lon, acc, addr := loc.Latitude, loc.Longitude, loc.Accuracy, loc.Address
		req.Latitude, req.Longitude, req.Accuracy, req.Address = &lat, &lon, &acc, &addr
	} else if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	if err := a.refresh(ctx); err != nil {
		return Outcome{}, err
	}
	if _, ok := a.sessions.Find(session.TypeEvent, func(s session.Session) bool { return s.EventID == eventID }); ok {
		return Outcome{}, ErrAlreadyActive
	}

	res, err := a.timesheets.CheckIn(ctx, req)
	switch {
	case err == nil:
		s := session.FromTimesheet(res)
		a.sessions.StartSession(s)
		return Outcome{Session: s}, nil
	case remote.HasCode(err, remote.CodeAlreadyCheckedIn):
		return Outcome{}, ErrAlreadyActive
	case !remote.IsOffline(err):
		return Outcome{}, err
	}

	now := a.now()
	entry := timesheet.UpsertRequest{
		ID:             id,
		EventID:        eventID,
		Date:           localtime.DateString(now),
		StartTime:      localtime.ClockOf(now).String(),
		IsSelfAssigned: selfAssigned,
	}
	item, err := a.queue.Enqueue(ctx, offline.KindTimesheet, timesheetPayload{ID: id, Entry: entry})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to queue event check-in: %w", err)
	}
	s := session.Session{
		ID:          id,
		Type:        session.TypeEvent,
		RecordID:    id,
		CrewID:      a.crewID,
		EventID:     eventID,
		Label:       eventID,
		Date:        entry.Date,
		CheckInTime: entry.StartTime,
		Pending:     true,
		QueueID:     item.ID,
	}
	a.sessions.StartSession(s)
	return Outcome{Session: s, Queued: true}, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
