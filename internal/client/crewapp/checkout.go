package crewapp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/crew-attendance/internal/client/location"
	"github.com/cmlabs-hris/crew-attendance/internal/client/offline"
	"github.com/cmlabs-hris/crew-attendance/internal/client/remote"
	"github.com/cmlabs-hris/crew-attendance/internal/client/session"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
)

// checkoutPayload is a queued check-out. The request ids are not part of
// their JSON, so the record id travels beside them. An empty RecordID on an
// attendance check-out means the check-in was itself queued.
type checkoutPayload struct {
	SessionType session.Type                `json:"session_type"`
	RecordID    string                      `json:"record_id,omitempty"`
	Date        string                      `json:"date"`
	Attendance  *attendance.CheckOutRequest `json:"attendance,omitempty"`
	Timesheet   *timesheet.CheckOutRequest  `json:"timesheet,omitempty"`
}

// CheckOut closes the current session. Without a position a warehouse
// check-out is sent as forced.
func (a *App) CheckOut(ctx context.Context, notes string) (Outcome, error) {
	done, err := a.begin()
	if err != nil {
		return Outcome{}, err
	}
	defer done()

	cur, ok := a.sessions.Current()
	if !ok {
		return Outcome{}, session.ErrNoSession
	}

	var loc *location.Location
	if cur.Type != session.TypeEvent {
		if l, err := a.location.Acquire(ctx, a.locOpts); err == nil {
			loc = &l
		} else if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		} else {
			slog.Warn("check-out without position", "session", cur.ID, "error", err)
		}
	}

	c, err := a.sessions.PrepareCheckOut(loc, notes)
	if err != nil {
		return Outcome{}, err
	}

	if !c.Session.Pending {
		err := a.sessions.Submit(ctx, c)
		switch {
		case err == nil:
			return Outcome{Session: c.Session}, nil
		case remote.HasCode(err, remote.CodeAlreadyCheckedOut):
			a.sessions.EndSession(c.Session.ID)
			return Outcome{Session: c.Session}, nil
		case !remote.IsOffline(err):
			return Outcome{}, err
		}
	}

	p := checkoutPayload{
		SessionType: c.Session.Type,
		RecordID:    c.Session.RecordID,
		Date:        c.Session.Date,
		Attendance:  c.Attendance,
		Timesheet:   c.Timesheet,
	}
	if _, err := a.queue.Enqueue(ctx, offline.KindCheckOut, p); err != nil {
		return Outcome{}, fmt.Errorf("failed to queue check-out: %w", err)
	}
	a.sessions.EndSession(c.Session.ID)
	return Outcome{Session: c.Session, Queued: true}, nil
}
