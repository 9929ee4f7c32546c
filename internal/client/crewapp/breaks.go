package crewapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/crew-attendance/internal/client/offline"
	"github.com/cmlabs-hris/crew-attendance/internal/client/remote"
	"github.com/cmlabs-hris/crew-attendance/internal/client/session"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
)

// ErrBreakUnsupported refuses a break on an event session. Event breaks
// are entered on the timesheet form.
var ErrBreakUnsupported = errors.New("breaks are entered on the event timesheet")

type breakAction string

const (
	breakStart breakAction = "start"
	breakEnd   breakAction = "end"
)

// breakPayload is a queued break edit. An empty RecordID means the
// check-in was queued as well.
type breakPayload struct {
	SessionType session.Type         `json:"session_type"`
	RecordID    string               `json:"record_id,omitempty"`
	Date        string               `json:"date"`
	Kind        attendance.BreakKind `json:"kind"`
	Action      breakAction          `json:"action"`
	Time        string               `json:"time"`
}

// StartBreak starts a lunch or dinner break on the current shift.
func (a *App) StartBreak(ctx context.Context, kind attendance.BreakKind) (Outcome, error) {
	return a.editBreak(ctx, kind, breakStart)
}

// EndBreak ends a running break and updates the session's break minutes.
func (a *App) EndBreak(ctx context.Context, kind attendance.BreakKind) (Outcome, error) {
	return a.editBreak(ctx, kind, breakEnd)
}

func (a *App) editBreak(ctx context.Context, kind attendance.BreakKind, action breakAction) (Outcome, error) {
	done, err := a.begin()
	if err != nil {
		return Outcome{}, err
	}
	defer done()

	cur, ok := a.sessions.Current()
	if !ok {
		return Outcome{}, session.ErrNoSession
	}
	if cur.Type == session.TypeEvent {
		return Outcome{}, ErrBreakUnsupported
	}
	if kind != attendance.BreakLunch && kind != attendance.BreakDinner {
		return Outcome{}, fmt.Errorf("unknown break kind %q", kind)
	}

	clock := localtime.ClockOf(a.now())
	stamp := clock.String()

	if !cur.Pending {
		req := attendance.BreakRequest{AttendanceID: cur.RecordID, Kind: kind, Time: &stamp}
		if err := req.Validate(); err != nil {
			return Outcome{}, err
		}
		call := a.attendance.StartBreak
		if action == breakEnd {
			call = a.attendance.EndBreak
		}
		res, err := call(ctx, req)
		switch {
		case err == nil:
			a.sessions.Replace(session.FromAttendance(res))
			s, _ := a.sessions.Current()
			return Outcome{Session: s}, nil
		case !remote.IsOffline(err):
			return Outcome{}, err
		}
	}

	edit := a.sessions.StartBreak
	if action == breakEnd {
		edit = a.sessions.EndBreak
	}
	s, err := edit(cur.ID, kind, clock)
	if err != nil {
		return Outcome{}, err
	}

	p := breakPayload{
		SessionType: cur.Type,
		RecordID:    cur.RecordID,
		Date:        cur.Date,
		Kind:        kind,
		Action:      action,
		Time:        stamp,
	}
	if _, err := a.queue.Enqueue(ctx, offline.KindBreak, p); err != nil {
		return Outcome{}, fmt.Errorf("failed to queue break %s: %w", action, err)
	}
	slog.Info("break queued offline", "session", cur.ID, "kind", kind, "action", action)
	return Outcome{Session: s, Queued: true}, nil
}
