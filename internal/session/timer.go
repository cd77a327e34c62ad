package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// stopConfirmWait bounds how long Stop blocks for the countdown loop to
// acknowledge cancellation before proceeding optimistically.
const stopConfirmWait = time.Second

type countdown struct {
	stopCh chan struct{}
	doneCh chan struct{}
}

// TimerTable runs at most one countdown per quiz code. Starting a new
// countdown for a code first stops the old one and waits for its loop to
// actually exit, so two loops never broadcast for the same code.
type TimerTable struct {
	mu     sync.Mutex
	active map[string]*countdown

	// swapMu serializes stop-and-start sequences. Without it two
	// concurrent Start calls could both find no entry to stop, then both
	// register and launch loops for the same code.
	swapMu sync.Mutex

	clock       clockwork.Clock
	broadcaster Broadcaster
}

// NewTimerTable creates a timer table broadcasting through b.
func NewTimerTable(clock clockwork.Clock, b Broadcaster) *TimerTable {
	return &TimerTable{
		active:      make(map[string]*countdown),
		clock:       clock,
		broadcaster: b,
	}
}

// Start begins a countdown of the given number of seconds for a code,
// replacing any countdown already running for it. The stop of the old
// loop and the registration of the new one are one atomic sequence.
func (t *TimerTable) Start(code string, seconds int) {
	t.swapMu.Lock()
	defer t.swapMu.Unlock()

	t.stop(code)

	c := &countdown{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	t.mu.Lock()
	t.active[code] = c
	t.mu.Unlock()

	go t.run(code, seconds, c)

	log.Debug().Str("quiz_code", code).Int("seconds", seconds).Msg("countdown started")
}

// Stop cancels the countdown for a code, blocking until the loop confirms
// or the bounded wait elapses. Stopping an absent code is a no-op.
func (t *TimerTable) Stop(code string) {
	t.swapMu.Lock()
	defer t.swapMu.Unlock()
	t.stop(code)
}

func (t *TimerTable) stop(code string) {
	t.mu.Lock()
	c, ok := t.active[code]
	if ok {
		delete(t.active, code)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	close(c.stopCh)
	select {
	case <-c.doneCh:
	case <-time.After(stopConfirmWait):
		// The loop still owns its own cleanup; proceed without it.
		log.Warn().Str("quiz_code", code).Msg("countdown did not confirm stop within bound")
	}
}

// Running reports whether a countdown is currently active for a code.
// Finished countdowns remove their own entry, so this never reports a
// stale timer as active.
func (t *TimerTable) Running(code string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[code]
	return ok
}

func (t *TimerTable) run(code string, seconds int, c *countdown) {
	defer close(c.doneCh)
	defer t.remove(code, c)

	ticker := t.clock.NewTicker(time.Second)
	defer ticker.Stop()

	left := seconds
	for left > 0 {
		select {
		case <-c.stopCh:
			return
		case <-ticker.Chan():
			left--
			t.broadcaster.Broadcast(code, NewEvent(code, EventTypeTimerUpdate, TimerUpdatePayload{TimeLeft: left}))
		}
	}

	t.broadcaster.Broadcast(code, NewEvent(code, EventTypeTimeExpired, struct{}{}))
	log.Debug().Str("quiz_code", code).Msg("countdown expired")
}

// remove deletes the table entry only if it still belongs to this loop; a
// replacement countdown registered after a Stop must not be clobbered.
func (t *TimerTable) remove(code string, c *countdown) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active[code] == c {
		delete(t.active, code)
	}
}
