package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishReachesOnlyRecipient(t *testing.T) {
	h := NewHub()
	a, cleanupA := h.Subscribe("crew-a")
	defer cleanupA()
	b, cleanupB := h.Subscribe("crew-b")
	defer cleanupB()

	h.Publish("crew-a", Event{CrewID: "crew-a", Event: "notification", Data: "hello"})

	select {
	case ev := <-a:
		assert.Equal(t, "hello", ev.Data)
	default:
		t.Fatal("expected event for crew-a")
	}
	assert.Len(t, b, 0)
}

func TestHubCleanupIsIdempotent(t *testing.T) {
	h := NewHub()
	ch, cleanup := h.Subscribe("crew-a")
	assert.Equal(t, 1, h.SubscriberCount("crew-a"))

	cleanup()
	cleanup()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.TotalSubscribers())
}

func TestHubPublishToMany(t *testing.T) {
	h := NewHub()
	a, ca := h.Subscribe("a")
	defer ca()
	b, cb := h.Subscribe("b")
	defer cb()

	h.PublishToMany([]string{"a", "b"}, Event{Event: "notification"})

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "b", (<-b).CrewID)
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	ch, cleanup := h.Subscribe("a")

	h.Close()
	_, open := <-ch
	assert.False(t, open)
	cleanup() // must not panic on a closed channel

	late, _ := h.Subscribe("a")
	_, open = <-late
	assert.False(t, open)
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	ch, cleanup := h.Subscribe("a")
	defer cleanup()

	for i := 0; i < 20; i++ {
		h.Publish("a", Event{Event: "notification", Data: i})
	}
	assert.Len(t, ch, 10)
}
