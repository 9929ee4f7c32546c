package warehouse

import (
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/shift"
)

type Warehouse struct {
	ID           string
	Name         string
	Address      *string
	Latitude     *float64
	Longitude    *float64
	RadiusMeters int
	BackupCode   string // text encoded in the site QR code
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasCoordinates reports whether the site location is known.
func (w *Warehouse) HasCoordinates() bool {
	return w.Latitude != nil && w.Longitude != nil
}

// Shift is one scheduled warehouse shift for a crew member.
type Shift struct {
	ID          string
	CrewID      string
	WarehouseID string
	Date        time.Time
	StartTime   string
	EndTime     string
	Notes       *string
	CreatedAt   time.Time

	// Join
	WarehouseName *string
}

// Window converts the stored schedule into a validator window.
func (s *Shift) Window() (shift.Window, error) {
	return shift.NewWindow(s.Date.Format(localtime.DateLayout), s.StartTime, s.EndTime)
}
