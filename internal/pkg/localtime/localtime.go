// Package localtime converts between calendar-day strings, time-of-day
// strings and instants in the single civil timezone the crew works in.
package localtime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DateLayout = "2006-01-02"
	ClockEmpty = "--:--"
	daySeconds = 24 * 60 * 60
)

var ErrInvalidClock = errors.New("invalid time of day, expected HH:MM or HH:MM:SS")

// Zone is the civil timezone every date and time of day is interpreted in.
var Zone = loadZone("Europe/Rome")

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CET", 60*60)
	}
	return loc
}

// SetZone overrides the civil timezone. Intended for process start-up only.
func SetZone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", name, err)
	}
	Zone = loc
	return nil
}

// Clock is a time of day expressed in seconds since local midnight.
type Clock int

// ParseClock accepts "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, ErrInvalidClock
	}

	limits := []int{23, 59, 59}
	var total int
	for i, p := range parts {
		if len(p) != 2 {
			return 0, ErrInvalidClock
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, ErrInvalidClock
		}
		switch i {
		case 0:
			total += n * 3600
		case 1:
			total += n * 60
		case 2:
			total += n
		}
	}
	return Clock(total), nil
}

// MustClock is ParseClock for constants and tests.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the local time of day of t.
func ClockOf(t time.Time) Clock {
	l := t.In(Zone)
	return Clock(l.Hour()*3600 + l.Minute()*60 + l.Second())
}

func (c Clock) String() string {
	c = c.normalize()
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, int(c)%3600/60, int(c)%60)
}

// HHMM formats the clock without seconds.
func (c Clock) HHMM() string {
	c = c.normalize()
	return fmt.Sprintf("%02d:%02d", int(c)/3600, int(c)%3600/60)
}

// Minutes returns whole minutes since midnight.
func (c Clock) Minutes() int {
	return int(c.normalize()) / 60
}

// Add shifts the clock by d, wrapping around midnight.
func (c Clock) Add(d time.Duration) Clock {
	return (c + Clock(d/time.Second)).normalize()
}

func (c Clock) normalize() Clock {
	c %= daySeconds
	if c < 0 {
		c += daySeconds
	}
	return c
}

// DateString returns the local calendar day of t as YYYY-MM-DD.
func DateString(t time.Time) string {
	return t.In(Zone).Format(DateLayout)
}

// Today is the local calendar day of now.
func Today(now time.Time) string {
	return DateString(now)
}

// Tomorrow is the local calendar day after now.
func Tomorrow(now time.Time) string {
	l := now.In(Zone)
	return time.Date(l.Year(), l.Month(), l.Day()+1, 0, 0, 0, 0, Zone).Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD as local midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), Zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Combine returns the instant at clock c on the given local day.
func Combine(day time.Time, c Clock) time.Time {
	l := day.In(Zone)
	c = c.normalize()
	return time.Date(l.Year(), l.Month(), l.Day(), int(c)/3600, int(c)%3600/60, int(c)%60, 0, Zone)
}

// MostRecent returns the latest instant not after now whose local time of
// day is c. A clock later than now's time of day resolves to yesterday.
func MostRecent(c Clock, now time.Time) time.Time {
	t := Combine(now, c)
	if t.After(now) {
		l := now.In(Zone)
		t = Combine(time.Date(l.Year(), l.Month(), l.Day()-1, 12, 0, 0, 0, Zone), c)
	}
	return t
}

// FormatTimeOfDay renders a stored time of day or an RFC3339 timestamp as
// HH:MM in the local zone.
func FormatTimeOfDay(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ClockEmpty
	}
	if c, err := ParseClock(s); err == nil {
		return c.HHMM()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return ClockOf(t).HHMM()
	}
	// Postgres time columns may carry fractional seconds.
	if i := strings.IndexByte(s, '.'); i > 0 {
		if c, err := ParseClock(s[:i]); err == nil {
			return c.HHMM()
		}
	}
	return ClockEmpty
}

// FormatElapsed renders d as HH:MM:SS. Hours are not capped at 24.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
