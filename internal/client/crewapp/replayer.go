package crewapp

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/crew-attendance/internal/client/offline"
	"github.com/cmlabs-hris/crew-attendance/internal/client/remote"
	"github.com/cmlabs-hris/crew-attendance/internal/client/session"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/expense"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

// Replayer sends queued items to the API. A conflict saying the work was
// already recorded counts as delivered.
type Replayer struct {
	attendance AttendanceAPI
	timesheets TimesheetAPI
	expenses   ExpenseAPI
	crewID     string
}

func (r *Replayer) Replay(ctx context.Context, item offline.Item) error {
	switch item.Kind {
	case offline.KindCheckIn:
		var req attendance.CheckInRequest
		if err := item.Decode(&req); err != nil {
			return err
		}
		_, err := r.attendance.CheckIn(ctx, req)
		return delivered(err, remote.CodeAlreadyCheckedIn)

	case offline.KindCheckOut:
		var p checkoutPayload
		if err := item.Decode(&p); err != nil {
			return err
		}
		return r.checkOut(ctx, p)

	case offline.KindBreak:
		var p breakPayload
		if err := item.Decode(&p); err != nil {
			return err
		}
		return r.editBreak(ctx, p)

	case offline.KindTimesheet:
		var p timesheetPayload
		if err := item.Decode(&p); err != nil {
			return err
		}
		p.Entry.ID = p.ID
		_, err := r.timesheets.Upsert(ctx, p.Entry)
		return err

	case offline.KindExpense:
		var req expense.CreateRequest
		if err := item.Decode(&req); err != nil {
			return err
		}
		_, err := r.expenses.Create(ctx, req)
		return err

	default:
		return fmt.Errorf("unknown queue item kind %q", item.Kind)
	}
}

func (r *Replayer) checkOut(ctx context.Context, p checkoutPayload) error {
	switch {
	case p.Timesheet != nil:
		req := *p.Timesheet
		req.ID = p.RecordID
		_, err := r.timesheets.CheckOut(ctx, req)
		return delivered(err, remote.CodeAlreadyCheckedOut)

	case p.Attendance != nil:
		id := p.RecordID
		if id == "" {
			var err error
			if id, err = r.openAttendance(ctx, p.SessionType, p.Date); err != nil {
				return err
			}
		}
		req := *p.Attendance
		req.AttendanceID = id
		_, err := r.attendance.CheckOut(ctx, req)
		return delivered(err, remote.CodeAlreadyCheckedOut)

	default:
		return fmt.Errorf("check-out without a request")
	}
}

// editBreak replays a break. A state conflict means an earlier attempt got
// through.
func (r *Replayer) editBreak(ctx context.Context, p breakPayload) error {
	id := p.RecordID
	if id == "" {
		var err error
		if id, err = r.openAttendance(ctx, p.SessionType, p.Date); err != nil {
			return err
		}
	}
	stamp := p.Time
	req := attendance.BreakRequest{AttendanceID: id, Kind: p.Kind, Time: &stamp}
	if err := req.Validate(); err != nil {
		return err
	}
	call := r.attendance.StartBreak
	if p.Action == breakEnd {
		call = r.attendance.EndBreak
	}
	_, err := call(ctx, req)
	return delivered(err, remote.CodeInvalidState)
}

// openAttendance finds the row a queued check-in created. date is the
// shift day the row is stored under.
func (r *Replayer) openAttendance(ctx context.Context, t session.Type, date string) (string, error) {
	shiftType := attendance.ShiftWarehouse
	if t == session.TypeExtra {
		shiftType = attendance.ShiftExtra
	}
	f := query.New().
		Eq("shift_type", string(shiftType)).
		Eq("date", date).
		Eq("status", string(attendance.StatusActive)).
		Order("created_at", true).
		Limit(1)
	if r.crewID != "" {
		f.Eq("crew_id", r.crewID)
	}
	rows, _, err := r.attendance.List(ctx, f)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no open %s attendance on %s", shiftType, date)
	}
	return rows[0].ID, nil
}

func delivered(err error, code string) error {
	if err != nil && remote.HasCode(err, code) {
		return nil
	}
	return err
}
