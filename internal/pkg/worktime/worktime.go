// Package worktime holds the duration and pay arithmetic shared by the API
// and the device client. Times are local times of day without a date, so a
// single span never exceeds 24 hours.
package worktime

import (
	"errors"
	"math"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
)

// OvertimeStep is the granularity overtime can be requested in, in minutes.
const OvertimeStep = 30

const dayMinutes = 24 * 60

type TrackingMode string

const (
	TrackingHours TrackingMode = "hours"
	TrackingDays  TrackingMode = "days"
)

var ErrNonPositiveNet = errors.New("net worked time must be greater than zero")

// Break is a start/end pair. A nil field means the break was not recorded
// or is still running.
type Break struct {
	Start *localtime.Clock
	End   *localtime.Clock
}

// Closed reports whether both ends of the break are recorded.
func (b Break) Closed() bool {
	return b.Start != nil && b.End != nil
}

// Elapsed returns the minutes from in to out, adding a day when out is
// earlier than in.
func Elapsed(in, out localtime.Clock) int {
	d := out.Minutes() - in.Minutes()
	if d < 0 {
		d += dayMinutes
	}
	return d
}

// BreakMinutes sums the closed breaks.
func BreakMinutes(breaks ...Break) int {
	total := 0
	for _, b := range breaks {
		if !b.Closed() {
			continue
		}
		total += Elapsed(*b.Start, *b.End)
	}
	return total
}

// NetMinutes is Elapsed minus breaks. The result may be zero or negative.
func NetMinutes(in, out localtime.Clock, breaks ...Break) int {
	return Elapsed(in, out) - BreakMinutes(breaks...)
}

// ValidateNet rejects zero or negative worked time.
func ValidateNet(in, out localtime.Clock, breaks ...Break) (int, error) {
	net := NetMinutes(in, out, breaks...)
	if net <= 0 {
		return net, ErrNonPositiveNet
	}
	return net, nil
}

// ExpectedMinutes is the scheduled length of a shift.
func ExpectedMinutes(start, end localtime.Clock) int {
	d := Elapsed(start, end)
	if d == 0 {
		return dayMinutes
	}
	return d
}

// RequestableOvertime floors the excess over the expected minutes to whole
// overtime steps.
func RequestableOvertime(worked, expected int) int {
	excess := worked - expected
	if excess <= 0 {
		return 0
	}
	return excess / OvertimeStep * OvertimeStep
}

// OvertimeOptions lists the selectable request sizes up to limit.
func OvertimeOptions(limit int) []int {
	opts := []int{}
	for m := OvertimeStep; m <= limit; m += OvertimeStep {
		opts = append(opts, m)
	}
	return opts
}

// ValidOvertime reports whether minutes is a positive whole number of steps
// not exceeding limit.
func ValidOvertime(minutes, limit int) bool {
	return minutes > 0 && minutes%OvertimeStep == 0 && minutes <= limit
}

// Hours converts minutes to hours rounded to two decimals.
func Hours(minutes int) float64 {
	return round2(float64(minutes) / 60)
}

// Amounts computes gross and net pay for one timesheet entry. In days mode
// every entry counts as one day.
func Amounts(mode TrackingMode, hours, hourlyRate, dailyRate, retentionPct float64) (gross, net float64) {
	switch mode {
	case TrackingDays:
		gross = dailyRate
	default:
		gross = hours * hourlyRate
	}
	if retentionPct < 0 {
		retentionPct = 0
	}
	if retentionPct > 100 {
		retentionPct = 100
	}
	gross = round2(gross)
	net = round2(gross * (1 - retentionPct/100))
	return gross, net
}

// OvertimeAmount is the pay for an approved overtime request.
func OvertimeAmount(minutes int, hourlyRate float64) float64 {
	return round2(float64(minutes) / 60 * hourlyRate)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
