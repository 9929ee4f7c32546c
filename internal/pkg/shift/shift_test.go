package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
)

func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	day, err := localtime.ParseDate(date)
	require.NoError(t, err)
	return localtime.Combine(day, localtime.MustClock(clock))
}

func window(t *testing.T, date, start, end string) Window {
	t.Helper()
	w, err := NewWindow(date, start, end)
	require.NoError(t, err)
	return w
}

func TestValidate(t *testing.T) {
	day := window(t, "2026-03-10", "09:00", "17:00")
	night := window(t, "2026-03-10", "22:00", "06:00")

	tests := []struct {
		name        string
		w           Window
		now         time.Time
		status      Status
		valid       bool
		canCheckIn  bool
		canCheckOut bool
		reason      string
	}{
		{"early within grace", day, at(t, "2026-03-10", "08:55"), StatusEarlyCheckIn, true, true, false, "09:00"},
		{"grace boundary", day, at(t, "2026-03-10", "05:00"), StatusEarlyCheckIn, true, true, false, ""},
		{"too early", day, at(t, "2026-03-10", "04:00"), StatusTooEarly, false, false, false, "05:00"},
		{"at start", day, at(t, "2026-03-10", "09:00"), StatusActive, true, true, true, ""},
		{"in window", day, at(t, "2026-03-10", "16:59"), StatusActive, true, true, true, ""},
		{"at end", day, at(t, "2026-03-10", "17:00"), StatusExpired, false, false, false, "0m late"},
		{"expired", day, at(t, "2026-03-10", "19:30"), StatusExpired, false, false, false, "2h 30m late"},
		{"wrong day past", day, at(t, "2026-03-11", "10:00"), StatusWrongDay, false, false, false, "already past"},
		{"wrong day future", day, at(t, "2026-03-09", "10:00"), StatusWrongDay, false, false, false, "not arrived"},
		{"overnight early", night, at(t, "2026-03-10", "19:00"), StatusEarlyCheckIn, true, true, false, ""},
		{"overnight after midnight", night, at(t, "2026-03-11", "02:00"), StatusActive, true, true, true, ""},
		{"overnight expired next morning", night, at(t, "2026-03-11", "07:00"), StatusExpired, false, false, false, "1h 00m late"},
		{"night band before tonight", night, at(t, "2026-03-10", "01:00"), StatusNightShiftEarly, false, false, false, "tonight at 22:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.w, tt.now)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.valid, res.IsValid)
			assert.Equal(t, tt.canCheckIn, res.CanCheckIn)
			assert.Equal(t, tt.canCheckOut, res.CanCheckOut)
			if tt.reason != "" {
				assert.Contains(t, res.Reason, tt.reason)
			}
		})
	}
}

func TestValidate_TooEarlyReportsWait(t *testing.T) {
	w := window(t, "2026-03-10", "09:00", "17:00")
	res := Validate(w, at(t, "2026-03-10", "04:00"))

	assert.Equal(t, "05:00", res.EarliestCheckIn.HHMM())
	assert.Equal(t, time.Hour, res.Wait)
	assert.Contains(t, res.Reason, "in 1h 00m")
}

func TestValidate_EarlyWindowCrossesMidnight(t *testing.T) {
	w := window(t, "2026-03-11", "01:00", "07:00")
	res := Validate(w, at(t, "2026-03-10", "22:00"))

	assert.Equal(t, StatusEarlyCheckIn, res.Status)
	assert.True(t, res.CanCheckIn)
	assert.Equal(t, "21:00", res.EarliestCheckIn.HHMM())
}

// Check-in is allowed exactly on [S-4h, E), check-out exactly on [S, E).
func TestValidate_PermissionIntervals(t *testing.T) {
	w := window(t, "2026-03-10", "09:00", "17:00")
	startAt, endAt := w.Bounds()
	earliest := startAt.Add(-EarlyCheckInWindow)

	for now := startAt.Add(-6 * time.Hour); now.Before(endAt.Add(2 * time.Hour)); now = now.Add(10 * time.Minute) {
		res := Validate(w, now)
		inCheckIn := !now.Before(earliest) && now.Before(endAt)
		inCheckOut := !now.Before(startAt) && now.Before(endAt)
		assert.Equal(t, inCheckIn, res.CanCheckIn, "check-in at %s", now)
		assert.Equal(t, inCheckOut, res.CanCheckOut, "check-out at %s", now)
	}
}

func TestWindow(t *testing.T) {
	night := window(t, "2026-03-10", "22:00", "06:00")
	assert.True(t, night.Overnight())
	assert.Equal(t, 8*time.Hour, night.Duration())

	day := window(t, "2026-03-10", "09:00", "17:30")
	assert.False(t, day.Overnight())
	assert.Equal(t, 8*time.Hour+30*time.Minute, day.Duration())

	_, err := NewWindow("2026-03-10", "9", "17:00")
	assert.Error(t, err)
	_, err = NewWindow("tomorrow", "09:00", "17:00")
	assert.Error(t, err)
}
