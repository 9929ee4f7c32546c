package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/shift"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
)

type ShiftType string

const (
	ShiftWarehouse ShiftType = "warehouse"
	ShiftExtra     ShiftType = "extra"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// MealVoucherMinNetMinutes is the net worked time that earns a meal voucher
// when the shift carries a meal benefit.
const MealVoucherMinNetMinutes = 6 * 60

// StandardShiftMinutes is the expected length of an extra shift, which has
// no scheduled window.
const StandardShiftMinutes = 8 * 60

type BreakKind string

const (
	BreakLunch  BreakKind = "lunch"
	BreakDinner BreakKind = "dinner"
)

// Position is a GPS fix captured at check-in or check-out.
type Position struct {
	Latitude  *float64
	Longitude *float64
	Accuracy  *float64
	Address   *string
}

// Attendance is one warehouse or extra shift work session. Times of day are
// stored as HH:MM:SS strings next to the calendar date.
type Attendance struct {
	ID             string
	CrewID         string
	WarehouseID    string
	ShiftID        *string
	ShiftType      ShiftType
	Date           time.Time
	ScheduledStart *string
	ScheduledEnd   *string

	CheckInTime      string
	CheckOutTime     *string
	LunchBreakStart  *string
	LunchBreakEnd    *string
	DinnerBreakStart *string
	DinnerBreakEnd   *string
	BreakMinutes     int

	HasLunchBenefit  bool
	HasDinnerBenefit bool
	MealVoucher      bool

	CheckIn           Position
	CheckOut          Position
	DistanceFromSiteM *float64

	ForcedCheckIn bool
	ForcedReason  *string

	Status          Status
	AutoCheckout    bool
	TotalHours      *float64
	NetHours        *float64
	OvertimeMinutes *int
	Notes           *string

	RectifiedCheckIn     *string
	RectifiedCheckOut    *string
	RectifiedLunchStart  *string
	RectifiedLunchEnd    *string
	RectifiedDinnerStart *string
	RectifiedDinnerEnd   *string
	RectificationNote    *string
	RectifiedNetHours    *float64
	RectifiedAt          *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Enriched view
	WarehouseName *string
	CrewName      *string
}

// IsRectified reports whether a rectification overlay exists.
func (a *Attendance) IsRectified() bool {
	return a.RectificationNote != nil
}

// Breaks returns the recorded lunch and dinner pairs.
func (a *Attendance) Breaks() []worktime.Break {
	return []worktime.Break{
		{Start: parseClock(a.LunchBreakStart), End: parseClock(a.LunchBreakEnd)},
		{Start: parseClock(a.DinnerBreakStart), End: parseClock(a.DinnerBreakEnd)},
	}
}

// Effective overlays the rectified values on the original ones.
func (a *Attendance) Effective() (in string, out *string, breaks []worktime.Break) {
	in = a.CheckInTime
	if a.RectifiedCheckIn != nil {
		in = *a.RectifiedCheckIn
	}
	out = a.CheckOutTime
	if a.RectifiedCheckOut != nil {
		out = a.RectifiedCheckOut
	}
	if !a.IsRectified() {
		return in, out, a.Breaks()
	}
	breaks = []worktime.Break{
		{Start: parseClock(a.RectifiedLunchStart), End: parseClock(a.RectifiedLunchEnd)},
		{Start: parseClock(a.RectifiedDinnerStart), End: parseClock(a.RectifiedDinnerEnd)},
	}
	return in, out, breaks
}

// EffectiveNetHours is the rectified net when present, the original otherwise.
func (a *Attendance) EffectiveNetHours() *float64 {
	if a.RectifiedNetHours != nil {
		return a.RectifiedNetHours
	}
	return a.NetHours
}

// Window returns the scheduled shift window, if one was recorded.
func (a *Attendance) Window() (shift.Window, bool) {
	if a.ScheduledStart == nil || a.ScheduledEnd == nil {
		return shift.Window{}, false
	}
	w, err := shift.NewWindow(a.Date.Format(localtime.DateLayout), *a.ScheduledStart, *a.ScheduledEnd)
	if err != nil {
		return shift.Window{}, false
	}
	return w, true
}

// BreakRunning reports whether a break of the given kind has started and not ended.
func (a *Attendance) BreakRunning(kind BreakKind) bool {
	start, end := a.breakFields(kind)
	return *start != nil && *end == nil
}

func (a *Attendance) breakFields(kind BreakKind) (start, end **string) {
	if kind == BreakDinner {
		return &a.DinnerBreakStart, &a.DinnerBreakEnd
	}
	return &a.LunchBreakStart, &a.LunchBreakEnd
}

// SetBreakStart records the start of a break.
func (a *Attendance) SetBreakStart(kind BreakKind, clock string) {
	start, _ := a.breakFields(kind)
	*start = &clock
}

// SetBreakEnd records the end of a break.
func (a *Attendance) SetBreakEnd(kind BreakKind, clock string) {
	_, end := a.breakFields(kind)
	*end = &clock
}

// BreakState returns the recorded start and end of a break.
func (a *Attendance) BreakState(kind BreakKind) (start, end *string) {
	s, e := a.breakFields(kind)
	return *s, *e
}

func parseClock(s *string) *localtime.Clock {
	if s == nil {
		return nil
	}
	hms, _, _ := strings.Cut(*s, ".")
	c, err := localtime.ParseClock(hms)
	if err != nil {
		return nil
	}
	return &c
}
