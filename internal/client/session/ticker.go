package session

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
)

const idleElapsed = "00:00:00"

// Tick is one published elapsed-time frame.
type Tick struct {
	At      time.Time
	Current string            // elapsed of the current session
	Elapsed map[string]string // session id to HH:MM:SS
}

type ticker struct {
	m *Manager

	mu          sync.Mutex
	last        Tick
	subscribers map[int]chan Tick
	nextID      int
	stopped     bool
	wakeCh      chan struct{}
}

func newTicker(m *Manager) *ticker {
	return &ticker{
		m:           m,
		last:        Tick{Current: idleElapsed, Elapsed: map[string]string{}},
		subscribers: make(map[int]chan Tick),
		wakeCh:      make(chan struct{}, 1),
	}
}

// wake asks for an immediate recompute after the session list changed.
func (t *ticker) wake() {
	select {
	case t.wakeCh <- struct{}{}:
	default:
	}
}

func (t *ticker) run(ctx context.Context, every time.Duration) {
	tk := time.NewTicker(every)
	defer tk.Stop()

	t.publish(t.compute(t.m.now()))
	for {
		select {
		case <-ctx.Done():
			t.closeAll()
			return
		case <-tk.C:
		case <-t.wakeCh:
		}
		t.publish(t.compute(t.m.now()))
	}
}

// compute derives elapsed strings from the check-in instants. With no
// active session everything reads 00:00:00.
func (t *ticker) compute(now time.Time) Tick {
	sessions := t.m.Sessions()
	cur, hasCur := t.m.Current()

	tick := Tick{At: now, Current: idleElapsed, Elapsed: make(map[string]string, len(sessions))}
	for _, s := range sessions {
		tick.Elapsed[s.ID] = localtime.FormatElapsed(s.Elapsed(now))
	}
	if hasCur {
		if v, ok := tick.Elapsed[cur.ID]; ok {
			tick.Current = v
		}
	}
	return tick
}

func (t *ticker) publish(tick Tick) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = tick
	for _, ch := range t.subscribers {
		select {
		case ch <- tick:
		default:
			// slow reader, it gets the next frame
		}
	}
}

func (t *ticker) current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last.Current
}

func (t *ticker) subscribe() (<-chan Tick, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Tick, 1)
	if t.stopped {
		ch <- t.last
		close(ch)
		return ch, func() {}
	}
	id := t.nextID
	t.nextID++
	t.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if c, ok := t.subscribers[id]; ok {
				delete(t.subscribers, id)
				close(c)
			}
		})
	}
}

// closeAll ends every subscription. Later subscribers get the last frame
// on an already closed channel.
func (t *ticker) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for id, ch := range t.subscribers {
		delete(t.subscribers, id)
		close(ch)
	}
}
