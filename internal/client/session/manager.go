package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/client/location"
	"github.com/cmlabs-hris/crew-attendance/internal/client/remote"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
)

var ErrNoSession = errors.New("no active session")

// AttendanceStore is the part of the attendance API sessions need.
type AttendanceStore interface {
	List(ctx context.Context, f *query.Filter) ([]attendance.AttendanceResponse, *remote.Meta, error)
	CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.AttendanceResponse, error)
}

// TimesheetStore is the part of the timesheet API sessions need.
type TimesheetStore interface {
	List(ctx context.Context, f *query.Filter) ([]timesheet.TimesheetResponse, *remote.Meta, error)
	CheckOut(ctx context.Context, req timesheet.CheckOutRequest) (timesheet.TimesheetResponse, error)
}

// Manager is the single writer of the active session list. Readers get
// copies.
type Manager struct {
	attendance AttendanceStore
	timesheets TimesheetStore
	crewID     string
	now        func() time.Time

	mu        sync.RWMutex
	sessions  []Session
	currentID string

	ticker *ticker
}

func NewManager(att AttendanceStore, ts TimesheetStore, crewID string) *Manager {
	m := &Manager{
		attendance: att,
		timesheets: ts,
		crewID:     crewID,
		now:        time.Now,
	}
	m.ticker = newTicker(m)
	return m
}

// LoadActiveSession replaces the active list with the open attendance rows
// of today or tomorrow and the open timesheets of today. Tomorrow covers a
// check-in made after the UTC day rolled over. The first row becomes
// current.
func (m *Manager) LoadActiveSession(ctx context.Context) ([]Session, error) {
	now := m.now()
	today, tomorrow := localtime.Today(now), localtime.Tomorrow(now)

	af := query.New().
		In("date", today, tomorrow).
		IsNull("check_out_time").
		Order("date", true)
	if m.crewID != "" {
		af.Eq("crew_id", m.crewID)
	}
	rows, _, err := m.attendance.List(ctx, af)
	if err != nil {
		return nil, fmt.Errorf("failed to load active attendance: %w", err)
	}

	tf := query.New().Eq("date", today).IsNull("end_time")
	if m.crewID != "" {
		tf.Eq("crew_id", m.crewID)
	}
	sheets, _, err := m.timesheets.List(ctx, tf)
	if err != nil {
		return nil, fmt.Errorf("failed to load open timesheets: %w", err)
	}

	seen := make(map[string]bool, len(rows)+len(sheets))
	loaded := make([]Session, 0, len(rows)+len(sheets))
	for _, a := range rows {
		if !seen[a.ID] {
			seen[a.ID] = true
			loaded = append(loaded, FromAttendance(a))
		}
	}
	for _, t := range sheets {
		if !seen[t.ID] {
			seen[t.ID] = true
			loaded = append(loaded, FromTimesheet(t))
		}
	}

	m.mu.Lock()
	// offline sessions are not in the store yet
	for _, s := range m.sessions {
		if s.Pending && !seen[s.ID] {
			loaded = append(loaded, s)
		}
	}
	m.sessions = loaded
	m.currentID = ""
	if len(loaded) > 0 {
		m.currentID = loaded[0].ID
	}
	out := m.snapshot()
	m.mu.Unlock()

	m.ticker.wake()
	return out, nil
}

// Refresh invalidates the local mirror before a mutation that could race
// with another device.
func (m *Manager) Refresh(ctx context.Context) ([]Session, error) {
	return m.LoadActiveSession(ctx)
}

// StartSession records a session right after its remote insert succeeded
// and makes it current. A session with the same id is replaced.
func (m *Manager) StartSession(s Session) {
	m.mu.Lock()
	replaced := false
	for i := range m.sessions {
		if m.sessions[i].ID == s.ID {
			m.sessions[i] = s.clone()
			replaced = true
			break
		}
	}
	if !replaced {
		m.sessions = append(m.sessions, s.clone())
	}
	m.currentID = s.ID
	m.mu.Unlock()

	m.ticker.wake()
}

// Replace swaps in a fresh copy of a session after a remote edit. Fields
// the response does not carry keep their local values. Current is kept.
func (m *Manager) Replace(s Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		old := m.sessions[i]
		if old.ID != s.ID {
			continue
		}
		if s.Label == "" {
			s.Label = old.Label
		}
		if s.ScheduledStart == "" {
			s.ScheduledStart = old.ScheduledStart
		}
		if s.ScheduledEnd == "" {
			s.ScheduledEnd = old.ScheduledEnd
		}
		m.sessions[i] = s.clone()
		return true
	}
	return false
}

// StartBreak records a break start on a session without the API. One
// break of each kind per session.
func (m *Manager) StartBreak(id string, kind attendance.BreakKind, at localtime.Clock) (Session, error) {
	return m.editBreaks(id, func(s *Session) error {
		for _, b := range s.Breaks {
			if b.Kind == kind {
				return attendance.ErrBreakAlreadyStarted
			}
		}
		s.Breaks = append(s.Breaks, Break{Kind: kind, Start: at.String()})
		return nil
	})
}

// EndBreak closes a running break locally and recomputes BreakMinutes.
func (m *Manager) EndBreak(id string, kind attendance.BreakKind, at localtime.Clock) (Session, error) {
	return m.editBreaks(id, func(s *Session) error {
		for i, b := range s.Breaks {
			if b.Kind != kind {
				continue
			}
			if b.End != "" {
				return attendance.ErrBreakAlreadyEnded
			}
			s.Breaks[i].End = at.String()
			s.BreakMinutes = s.closedBreakMinutes()
			return nil
		}
		return attendance.ErrBreakNotStarted
	})
}

func (m *Manager) editBreaks(id string, edit func(*Session) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID != id {
			continue
		}
		s := m.sessions[i].clone()
		if err := edit(&s); err != nil {
			return Session{}, err
		}
		m.sessions[i] = s
		return s.clone(), nil
	}
	return Session{}, ErrNoSession
}

// EndSession drops a session locally. An empty id clears the current slot.
// The remote record must already be closed.
func (m *Manager) EndSession(id string) {
	m.mu.Lock()
	if id == "" {
		id = m.currentID
	}
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			break
		}
	}
	if m.currentID == id {
		m.currentID = ""
		if len(m.sessions) > 0 {
			m.currentID = m.sessions[0].ID
		}
	}
	m.mu.Unlock()

	m.ticker.wake()
}

// PruneOffline drops pending sessions whose queue item is gone, meaning
// the replay reached the API and a reload will bring the real row.
func (m *Manager) PruneOffline(queued func(queueID string) bool) {
	m.mu.Lock()
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.Pending && !queued(s.QueueID) {
			continue
		}
		kept = append(kept, s)
	}
	m.sessions = kept
	if !m.has(m.currentID) {
		m.currentID = ""
		if len(kept) > 0 {
			m.currentID = kept[0].ID
		}
	}
	m.mu.Unlock()
}

func (m *Manager) has(id string) bool {
	for _, s := range m.sessions {
		if s.ID == id {
			return true
		}
	}
	return false
}

// snapshot must be called with mu held.
func (m *Manager) snapshot() []Session {
	out := make([]Session, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = s.clone()
	}
	return out
}

func (m *Manager) Sessions() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot()
}

// Current returns the nominated session.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.ID == m.currentID {
			return s.clone(), true
		}
	}
	return Session{}, false
}

// Find returns the first session of type t.
func (m *Manager) Find(t Type, match func(Session) bool) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.Type == t && (match == nil || match(s)) {
			return s.clone(), true
		}
	}
	return Session{}, false
}

// Checkout is a prepared check-out of one session. Exactly one of
// Attendance and Timesheet is set.
type Checkout struct {
	Session    Session                     `json:"session"`
	Attendance *attendance.CheckOutRequest `json:"attendance,omitempty"`
	Timesheet  *timesheet.CheckOutRequest  `json:"timesheet,omitempty"`
	NetMinutes int                         `json:"net_minutes"`
}

// PrepareCheckOut builds the check-out of the current session at now. Net
// minutes wrap past midnight and exclude recorded breaks. A break still
// running counts up to now, the same way the API closes it.
func (m *Manager) PrepareCheckOut(loc *location.Location, notes string) (Checkout, error) {
	s, ok := m.Current()
	if !ok {
		return Checkout{}, ErrNoSession
	}
	in, err := localtime.ParseClock(s.CheckInTime)
	if err != nil {
		return Checkout{}, fmt.Errorf("session %s: %w", s.ID, err)
	}

	out := localtime.ClockOf(m.now())
	outStr := out.String()
	breakMinutes := s.BreakMinutes
	if b, ok := s.OpenBreak(); ok {
		if start, err := localtime.ParseClock(b.Start); err == nil {
			breakMinutes += worktime.Elapsed(start, out)
		}
	}
	c := Checkout{
		Session:    s,
		NetMinutes: worktime.Elapsed(in, out) - breakMinutes,
	}
	if c.NetMinutes < 0 {
		c.NetMinutes = 0
	}

	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	if s.Type == TypeEvent {
		c.Timesheet = &timesheet.CheckOutRequest{ID: s.RecordID, EndTime: &outStr, Notes: notesPtr}
		return c, nil
	}

	req := &attendance.CheckOutRequest{AttendanceID: s.RecordID, CheckOutTime: &outStr, Notes: notesPtr}
	if loc != nil {
		lat, lon, acc, addr := loc.Latitude, loc.Longitude, loc.Accuracy, loc.Address
		req.Position = attendance.PositionRequest{Latitude: &lat, Longitude: &lon, Accuracy: &acc, Address: &addr}
	} else {
		req.Forced = true
	}
	c.Attendance = req
	return c, nil
}

// Submit writes a prepared check-out and ends the session locally once the
// API accepted it.
func (m *Manager) Submit(ctx context.Context, c Checkout) error {
	var err error
	switch {
	case c.Attendance != nil:
		_, err = m.attendance.CheckOut(ctx, *c.Attendance)
	case c.Timesheet != nil:
		_, err = m.timesheets.CheckOut(ctx, *c.Timesheet)
	default:
		return ErrNoSession
	}
	if err != nil {
		return err
	}
	m.EndSession(c.Session.ID)
	return nil
}

// ManualCheckOut closes the current session and reports success. Callers
// choose the message.
func (m *Manager) ManualCheckOut(ctx context.Context, loc *location.Location, notes string) bool {
	c, err := m.PrepareCheckOut(loc, notes)
	if err != nil {
		slog.Warn("manual check-out unavailable", "error", err)
		return false
	}
	if c.Session.Pending {
		slog.Warn("manual check-out of a session not yet synced", "session", c.Session.ID)
		return false
	}
	if err := m.Submit(ctx, c); err != nil {
		slog.Error("manual check-out failed", "session", c.Session.ID, "error", err)
		return false
	}
	return true
}

// Run ticks the elapsed-time display every second until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	m.ticker.run(ctx, time.Second)
}

// Elapsed is the current session's running time as HH:MM:SS.
func (m *Manager) Elapsed() string {
	return m.ticker.current()
}

// Subscribe receives every published tick. The channel is closed by the
// returned cancel func or when Run returns.
func (m *Manager) Subscribe() (<-chan Tick, func()) {
	return m.ticker.subscribe()
}
