// Package offline keeps device mutations that could not reach the API and
// replays them when connectivity returns.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindCheckIn   Kind = "checkin"   // attendance check-in
	KindCheckOut  Kind = "checkout"  // attendance or timesheet check-out
	KindExpense   Kind = "expense"   // expense insert
	KindTimesheet Kind = "timesheet" // timesheet insert-or-update
	KindBreak     Kind = "break"     // attendance break start or end
)

// Item is one queued mutation. Payload is the exact JSON body the remote
// call would have sent.
type Item struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
}

// Decode unmarshals the payload into v.
func (i Item) Decode(v any) error {
	if err := json.Unmarshal(i.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload %s: %w", i.Kind, i.ID, err)
	}
	return nil
}

// Replayer performs the remote call an item stands for.
type Replayer interface {
	Replay(ctx context.Context, item Item) error
}

type ReplayerFunc func(ctx context.Context, item Item) error

func (f ReplayerFunc) Replay(ctx context.Context, item Item) error {
	return f(ctx, item)
}

type FlushResult struct {
	Succeeded int
	Failed    int
}

// Queue is the single writer of the persisted queue. Readers get copies.
type Queue struct {
	mu    sync.Mutex
	items []Item
	slot  Slot
	now   func() time.Time

	flushMu sync.Mutex // one replay run at a time
}

// NewQueue loads whatever an earlier process left in slot.
func NewQueue(ctx context.Context, slot Slot) (*Queue, error) {
	q := &Queue{slot: slot, now: time.Now}

	data, err := slot.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q.items); err != nil {
			return nil, fmt.Errorf("failed to decode offline queue: %w", err)
		}
	}
	return q, nil
}

// persist must be called with mu held.
func (q *Queue) persist(ctx context.Context) error {
	items := q.items
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode offline queue: %w", err)
	}
	return q.slot.Store(ctx, data)
}

// Enqueue appends a mutation and persists the queue before returning.
func (q *Queue) Enqueue(ctx context.Context, kind Kind, payload any) (Item, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Item{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Item{}, fmt.Errorf("failed to generate queue id: %w", err)
	}

	item := Item{ID: id.String(), Kind: kind, Payload: raw, CreatedAt: q.now().UTC()}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)
	if err := q.persist(ctx); err != nil {
		q.items = q.items[:len(q.items)-1]
		return Item{}, err
	}

	slog.Info("mutation queued offline", "id", item.ID, "kind", kind)
	return item, nil
}

// Pending returns a copy of the queued items in insertion order.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Flush attempts every queued item in order. Successes are removed and the
// queue persisted after each removal; failures stay queued with their
// attempt count bumped. A failing item never stops the run.
func (q *Queue) Flush(ctx context.Context, r Replayer) FlushResult {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	var res FlushResult
	for _, item := range q.Pending() {
		if ctx.Err() != nil {
			break
		}

		err := r.Replay(ctx, item)

		q.mu.Lock()
		if err == nil {
			res.Succeeded++
			q.remove(item.ID)
			if perr := q.persist(ctx); perr != nil {
				slog.Error("failed to persist offline queue", "error", perr)
			}
		} else {
			res.Failed++
			q.markFailed(item.ID, err)
			slog.Warn("offline replay failed", "id", item.ID, "kind", item.Kind, "attempts", item.Attempts+1, "error", err)
		}
		q.mu.Unlock()
	}

	if res.Failed > 0 {
		q.mu.Lock()
		if err := q.persist(ctx); err != nil {
			slog.Error("failed to persist offline queue", "error", err)
		}
		q.mu.Unlock()
	}

	if res.Succeeded+res.Failed > 0 {
		slog.Info("offline queue flushed", "succeeded", res.Succeeded, "failed", res.Failed)
	}
	return res
}

func (q *Queue) remove(id string) {
	for i := range q.items {
		if q.items[i].ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *Queue) markFailed(id string, err error) {
	for i := range q.items {
		if q.items[i].ID == id {
			q.items[i].Attempts++
			q.items[i].LastError = err.Error()
			return
		}
	}
}
