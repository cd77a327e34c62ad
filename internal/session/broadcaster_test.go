package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// recordingBroadcaster captures events for assertions and signals every
// delivery on a channel so tests can wait for asynchronous broadcasts.
type recordingBroadcaster struct {
	mu       sync.Mutex
	events   []Event
	unicasts map[string][]Event // connID -> events
	notify   chan Event
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{
		unicasts: make(map[string][]Event),
		notify:   make(chan Event, 256),
	}
}

func (b *recordingBroadcaster) Broadcast(code string, event Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()

	select {
	case b.notify <- event:
	default:
	}
}

func (b *recordingBroadcaster) Unicast(code string, connID string, event Event) {
	b.mu.Lock()
	b.unicasts[connID] = append(b.unicasts[connID], event)
	b.mu.Unlock()

	select {
	case b.notify <- event:
	default:
	}
}

func (b *recordingBroadcaster) broadcastCount(typ EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := 0
	for _, e := range b.events {
		if e.Type == typ {
			count++
		}
	}
	return count
}

func (b *recordingBroadcaster) lastBroadcast(t *testing.T, typ EventType) Event {
	t.Helper()

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Type == typ {
			return b.events[i]
		}
	}
	t.Fatalf("no broadcast of type %q recorded", typ)
	return Event{}
}

func (b *recordingBroadcaster) unicastsFor(connID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.unicasts[connID]...)
}

// waitFor blocks until an event of the given type is delivered or the
// timeout elapses.
func (b *recordingBroadcaster) waitFor(t *testing.T, typ EventType) Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-b.notify:
			if e.Type == typ {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %q", typ)
			return Event{}
		}
	}
}

func decodePayload[T any](t *testing.T, e Event) T {
	t.Helper()

	var payload T
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		t.Fatalf("failed to decode %q payload: %v", e.Type, err)
	}
	return payload
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
