package localtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09:00", "09:00:00", false},
		{"17:30:15", "17:30:15", false},
		{" 00:00 ", "00:00:00", false},
		{"23:59:59", "23:59:59", false},
		{"24:00", "", true},
		{"9:00", "", true},
		{"12:60", "", true},
		{"12", "", true},
		{"12:00:00:00", "", true},
		{"ab:cd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.String())
		})
	}
}

func TestClockAddWraps(t *testing.T) {
	c := MustClock("22:30")
	assert.Equal(t, "01:30", c.Add(3*time.Hour).HHMM())
	assert.Equal(t, "18:30", c.Add(-4*time.Hour).HHMM())
	assert.Equal(t, "23:00", MustClock("01:00").Add(-2*time.Hour).HHMM())
}

func TestDates(t *testing.T) {
	// 23:30 UTC on 31 Dec is already 1 Jan in Rome.
	now := time.Date(2025, 12, 31, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-01", Today(now))
	assert.Equal(t, "2026-01-02", Tomorrow(now))
	assert.Equal(t, "00:30", ClockOf(now).HHMM())

	day, err := ParseDate("2026-03-10")
	require.NoError(t, err)
	at := Combine(day, MustClock("09:15"))
	assert.Equal(t, "2026-03-10", DateString(at))
	assert.Equal(t, "09:15:00", ClockOf(at).String())

	_, err = ParseDate("10/03/2026")
	assert.Error(t, err)
}

func TestMostRecent(t *testing.T) {
	day, _ := ParseDate("2026-03-10")
	now := Combine(day, MustClock("01:00"))

	same := MostRecent(MustClock("00:15"), now)
	assert.Equal(t, "2026-03-10", DateString(same))

	prev := MostRecent(MustClock("22:00"), now)
	assert.Equal(t, "2026-03-09", DateString(prev))
	assert.Equal(t, 3*time.Hour, now.Sub(prev))
}

func TestFormatTimeOfDay(t *testing.T) {
	assert.Equal(t, "08:05", FormatTimeOfDay("08:05:59"))
	assert.Equal(t, "08:05", FormatTimeOfDay("08:05:59.123456"))
	assert.Equal(t, "10:00", FormatTimeOfDay("2026-03-10T09:00:00Z"))
	assert.Equal(t, ClockEmpty, FormatTimeOfDay(""))
	assert.Equal(t, ClockEmpty, FormatTimeOfDay("later"))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatElapsed(0))
	assert.Equal(t, "00:00:00", FormatElapsed(-5*time.Second))
	assert.Equal(t, "01:02:03", FormatElapsed(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "26:00:00", FormatElapsed(26*time.Hour))
}
