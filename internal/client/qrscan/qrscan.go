// Package qrscan filters camera decodes before they trigger a check-in.
package qrscan

import (
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/warehouse"
)

type State int

const (
	StateIdle State = iota
	StateScanning
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateCooldown:
		return "cooldown"
	default:
		return "idle"
	}
}

const (
	DefaultCooldown      = 2 * time.Second
	DefaultContentWindow = 10 * time.Second
)

// Debouncer accepts a decode only while scanning. An accepted decode puts
// it in cooldown until the cooldown elapses, and the same content is
// refused for the longer content window.
type Debouncer struct {
	mu            sync.Mutex
	state         State
	until         time.Time
	lastContent   string
	lastAccepted  time.Time
	cooldown      time.Duration
	contentWindow time.Duration
}

func NewDebouncer(cooldown, contentWindow time.Duration) *Debouncer {
	return &Debouncer{cooldown: cooldown, contentWindow: contentWindow}
}

// Start arms the scanner.
func (d *Debouncer) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateIdle {
		d.state = StateScanning
	}
}

// Stop disarms the scanner. Content memory survives a restart.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateIdle
}

// advance must be called with mu held.
func (d *Debouncer) advance(now time.Time) {
	if d.state == StateCooldown && !now.Before(d.until) {
		d.state = StateScanning
	}
}

func (d *Debouncer) State(now time.Time) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.advance(now)
	return d.state
}

// Accept reports whether text should be acted on.
func (d *Debouncer) Accept(text string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.advance(now)
	if d.state != StateScanning {
		return false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if text == d.lastContent && now.Sub(d.lastAccepted) < d.contentWindow {
		return false
	}

	d.lastContent = text
	d.lastAccepted = now
	d.state = StateCooldown
	d.until = now.Add(d.cooldown)
	return true
}

// MatchWarehouse finds the warehouse whose backup code is text, ignoring
// case and surrounding space.
func MatchWarehouse(text string, warehouses []warehouse.WarehouseResponse) (warehouse.WarehouseResponse, bool) {
	code := strings.TrimSpace(text)
	if code == "" {
		return warehouse.WarehouseResponse{}, false
	}
	for _, w := range warehouses {
		if strings.EqualFold(strings.TrimSpace(w.BackupCode), code) {
			return w, true
		}
	}
	return warehouse.WarehouseResponse{}, false
}
