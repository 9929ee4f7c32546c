// Package session reconciles what the crew member is currently doing with
// the API and keeps the live elapsed-time display.
package session

import (
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/shift"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
)

type Type string

const (
	TypeWarehouse Type = "warehouse"
	TypeEvent     Type = "event"
	TypeExtra     Type = "extra"
)

// Break is a recorded break pair, times as HH:MM:SS. End is empty while
// the break runs.
type Break struct {
	Kind  attendance.BreakKind `json:"kind"`
	Start string               `json:"start"`
	End   string               `json:"end,omitempty"`
}

// Session is one live work session. Pending sessions were started offline
// and have no record id until the queue replays.
type Session struct {
	ID               string  `json:"id"`
	Type             Type    `json:"type"`
	RecordID         string  `json:"record_id,omitempty"`
	CrewID           string  `json:"crew_id"`
	WarehouseID      string  `json:"warehouse_id,omitempty"`
	EventID          string  `json:"event_id,omitempty"`
	Label            string  `json:"label"`
	Date             string  `json:"date"`
	CheckInTime      string  `json:"check_in_time"`
	ScheduledStart   string  `json:"scheduled_start,omitempty"`
	ScheduledEnd     string  `json:"scheduled_end,omitempty"`
	BreakMinutes     int     `json:"break_minutes"`
	Breaks           []Break `json:"breaks,omitempty"`
	HasLunchBenefit  bool    `json:"has_lunch_benefit"`
	HasDinnerBenefit bool    `json:"has_dinner_benefit"`
	Pending          bool    `json:"pending"`
	QueueID          string  `json:"queue_id,omitempty"` // offline item that created it
}

// StartedAt resolves the check-in clock to an instant. Date is the shift
// day, which is not always the check-in day: an early check-in can fall on
// the evening before and a late one on the morning after. With a scheduled
// start the instant is the first one at or after the earliest allowed
// check-in. Otherwise it is the latest one not after now.
func (s Session) StartedAt(now time.Time) (time.Time, bool) {
	c, err := localtime.ParseClock(s.CheckInTime)
	if err != nil {
		return time.Time{}, false
	}
	if start, ok := s.scheduledStartAt(); ok {
		earliest := start.Add(-shift.EarlyCheckInWindow)
		t := localtime.Combine(earliest, c)
		if t.Before(earliest) {
			t = localtime.Combine(earliest.AddDate(0, 0, 1), c)
		}
		if !t.After(now) {
			return t, true
		}
	}
	return localtime.MostRecent(c, now), true
}

func (s Session) scheduledStartAt() (time.Time, bool) {
	if s.ScheduledStart == "" {
		return time.Time{}, false
	}
	start, err := localtime.ParseClock(s.ScheduledStart)
	if err != nil {
		return time.Time{}, false
	}
	day, err := localtime.ParseDate(s.Date)
	if err != nil {
		return time.Time{}, false
	}
	return localtime.Combine(day, start), true
}

// Elapsed is the running time at now.
func (s Session) Elapsed(now time.Time) time.Duration {
	start, ok := s.StartedAt(now)
	if !ok || now.Before(start) {
		return 0
	}
	return now.Sub(start)
}

// OpenBreak returns the running break, if any.
func (s Session) OpenBreak() (Break, bool) {
	for _, b := range s.Breaks {
		if b.End == "" {
			return b, true
		}
	}
	return Break{}, false
}

// closedBreakMinutes sums the recorded break pairs.
func (s Session) closedBreakMinutes() int {
	var pairs []worktime.Break
	for _, b := range s.Breaks {
		if b.End == "" {
			continue
		}
		start, err1 := localtime.ParseClock(b.Start)
		end, err2 := localtime.ParseClock(b.End)
		if err1 != nil || err2 != nil {
			continue
		}
		pairs = append(pairs, worktime.Break{Start: &start, End: &end})
	}
	return worktime.BreakMinutes(pairs...)
}

func (s Session) clone() Session {
	if s.Breaks != nil {
		s.Breaks = append([]Break(nil), s.Breaks...)
	}
	return s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// FromAttendance maps an open warehouse or extra attendance row.
func FromAttendance(a attendance.AttendanceResponse) Session {
	t := TypeWarehouse
	if a.ShiftType == attendance.ShiftExtra {
		t = TypeExtra
	}
	s := Session{
		ID:               a.ID,
		Type:             t,
		RecordID:         a.ID,
		CrewID:           a.CrewID,
		WarehouseID:      a.WarehouseID,
		Label:            deref(a.WarehouseName),
		Date:             a.Date,
		CheckInTime:      a.CheckInTime,
		ScheduledStart:   deref(a.ScheduledStart),
		ScheduledEnd:     deref(a.ScheduledEnd),
		BreakMinutes:     a.BreakMinutes,
		HasLunchBenefit:  a.HasLunchBenefit,
		HasDinnerBenefit: a.HasDinnerBenefit,
	}
	if a.LunchBreakStart != nil {
		s.Breaks = append(s.Breaks, Break{Kind: attendance.BreakLunch, Start: *a.LunchBreakStart, End: deref(a.LunchBreakEnd)})
	}
	if a.DinnerBreakStart != nil {
		s.Breaks = append(s.Breaks, Break{Kind: attendance.BreakDinner, Start: *a.DinnerBreakStart, End: deref(a.DinnerBreakEnd)})
	}
	return s
}

// FromTimesheet maps an open event timesheet row.
func FromTimesheet(t timesheet.TimesheetResponse) Session {
	return Session{
		ID:               t.ID,
		Type:             TypeEvent,
		RecordID:         t.ID,
		CrewID:           t.CrewID,
		EventID:          t.EventID,
		Label:            deref(t.EventTitle),
		Date:             t.Date,
		CheckInTime:      t.StartTime,
		BreakMinutes:     t.BreakMinutes,
		HasLunchBenefit:  t.HasLunchBenefit,
		HasDinnerBenefit: t.HasDinnerBenefit,
	}
}
