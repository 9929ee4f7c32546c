package sse

import (
	"sync"
)

// Event represents an SSE event to be sent to subscribers
type Event struct {
	CrewID string
	Event  string
	Data   interface{}
}

// Hub fans events out to the open streams of each crew member
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	closed      bool
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a stream for a crew member and returns its channel and cleanup function.
// After Close the returned channel is already closed.
func (h *Hub) Subscribe(crewID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	if h.subscribers[crewID] == nil {
		h.subscribers[crewID] = make(map[chan Event]struct{})
	}
	h.subscribers[crewID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subscribers[crewID][ch]; !ok {
				return // closed by Close
			}
			delete(h.subscribers[crewID], ch)
			close(ch)
			if len(h.subscribers[crewID]) == 0 {
				delete(h.subscribers, crewID)
			}
		})
	}

	return ch, cleanup
}

// Publish sends an event to all streams of a crew member
func (h *Hub) Publish(crewID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[crewID] {
		select {
		case ch <- event:
		default:
			// slow reader, drop
		}
	}
}

// PublishToMany sends an event to multiple crew members
func (h *Hub) PublishToMany(crewIDs []string, event Event) {
	for _, crewID := range crewIDs {
		eventCopy := event
		eventCopy.CrewID = crewID
		h.Publish(crewID, eventCopy)
	}
}

// SubscriberCount returns the number of open streams of a crew member
func (h *Hub) SubscriberCount(crewID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[crewID])
}

// TotalSubscribers returns the number of open streams
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}

// Close ends every stream. Used on shutdown so handlers return.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for crewID, subs := range h.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(h.subscribers, crewID)
	}
	h.closed = true
}
