// Package shift classifies a moment against a scheduled shift window and
// decides whether check-in and check-out are currently allowed.
package shift

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
)

// EarlyCheckInWindow is how long before the scheduled start check-in opens.
const EarlyCheckInWindow = 4 * time.Hour

var (
	nightBandEnd    = localtime.MustClock("05:00")
	nightShiftStart = localtime.MustClock("20:00")
)

type Status string

const (
	StatusWrongDay        Status = "wrong_day"
	StatusTooEarly        Status = "too_early"
	StatusEarlyCheckIn    Status = "early_check_in"
	StatusNightShiftEarly Status = "night_shift_early"
	StatusActive          Status = "active"
	StatusExpired         Status = "expired"
)

// Window is a scheduled shift: a local calendar day plus start and end time
// of day. An end at or before the start means the shift ends the next day.
type Window struct {
	Day   time.Time
	Start localtime.Clock
	End   localtime.Clock
}

func NewWindow(date, start, end string) (Window, error) {
	day, err := localtime.ParseDate(date)
	if err != nil {
		return Window{}, err
	}
	s, err := localtime.ParseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("start time: %w", err)
	}
	e, err := localtime.ParseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("end time: %w", err)
	}
	return Window{Day: day, Start: s, End: e}, nil
}

// Bounds returns the absolute start and end instants of the window.
func (w Window) Bounds() (time.Time, time.Time) {
	startAt := localtime.Combine(w.Day, w.Start)
	endAt := localtime.Combine(w.Day, w.End)
	if !endAt.After(startAt) {
		endAt = localtime.Combine(w.Day.AddDate(0, 0, 1), w.End)
	}
	return startAt, endAt
}

// Overnight reports whether the shift crosses midnight.
func (w Window) Overnight() bool {
	return w.End <= w.Start
}

// Duration is the scheduled length of the shift.
func (w Window) Duration() time.Duration {
	startAt, endAt := w.Bounds()
	return endAt.Sub(startAt)
}

// Result is the permission tuple for one moment.
type Result struct {
	Status          Status          `json:"status"`
	IsValid         bool            `json:"is_valid"`
	CanCheckIn      bool            `json:"can_check_in"`
	CanCheckOut     bool            `json:"can_check_out"`
	Reason          string          `json:"reason"`
	EarliestCheckIn localtime.Clock `json:"-"`
	Wait            time.Duration   `json:"-"`
	Late            time.Duration   `json:"-"`
}

// Validate classifies now against w. It has no side effects.
func Validate(w Window, now time.Time) Result {
	startAt, endAt := w.Bounds()
	earliest := startAt.Add(-EarlyCheckInWindow)
	today := localtime.DateString(now)
	shiftDay := localtime.DateString(startAt)

	res := Result{EarliestCheckIn: localtime.ClockOf(earliest)}

	switch {
	case !now.Before(startAt) && now.Before(endAt):
		res.Status = StatusActive
		res.IsValid, res.CanCheckIn, res.CanCheckOut = true, true, true
		res.Reason = fmt.Sprintf("shift in progress until %s", w.End.HHMM())

	case !now.Before(earliest):
		if now.Before(startAt) {
			res.Status = StatusEarlyCheckIn
			res.IsValid, res.CanCheckIn = true, true
			res.Reason = fmt.Sprintf("early check-in allowed, shift starts at %s (in %s)",
				w.Start.HHMM(), formatDuration(startAt.Sub(now)))
			break
		}
		res.Late = now.Sub(endAt)
		if today == shiftDay || today == localtime.DateString(endAt) {
			res.Status = StatusExpired
			res.Reason = fmt.Sprintf("shift ended at %s, %s late", w.End.HHMM(), formatDuration(res.Late))
		} else {
			res.Status = StatusWrongDay
			res.Reason = fmt.Sprintf("shift was on %s and is already past", shiftDay)
		}

	default:
		res.Wait = earliest.Sub(now)
		switch {
		case inNightBand(now) && w.Start >= nightShiftStart && today == shiftDay:
			// Small hours before a late-evening shift: tonight's shift, not last night's.
			res.Status = StatusNightShiftEarly
			res.Reason = fmt.Sprintf("night shift starts tonight at %s, check-in opens at %s (in %s)",
				w.Start.HHMM(), res.EarliestCheckIn.HHMM(), formatDuration(res.Wait))
		case today == shiftDay:
			res.Status = StatusTooEarly
			res.Reason = fmt.Sprintf("too early, check-in opens at %s (in %s)",
				res.EarliestCheckIn.HHMM(), formatDuration(res.Wait))
		default:
			res.Status = StatusWrongDay
			res.Reason = fmt.Sprintf("shift is on %s and has not arrived yet", shiftDay)
		}
	}

	return res
}

func inNightBand(now time.Time) bool {
	return localtime.ClockOf(now) < nightBandEnd
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
