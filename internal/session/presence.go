package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultSweepInterval is how often stale liveness records are checked.
	DefaultSweepInterval = 5 * time.Second
	// DefaultStaleAfter is how long a connection may go without a heartbeat
	// before its liveness record is evicted.
	DefaultStaleAfter = 15 * time.Second
)

type livenessRecord struct {
	PlayerID uuid.UUID
	Code     string
	LastSeen time.Time
}

// PresenceTracker maintains the ephemeral liveness records of connected
// players. Eviction only removes the record; it never touches player or
// response data, so a reconnecting player can rejoin under the same name.
type PresenceTracker struct {
	mu      sync.Mutex
	records map[string]*livenessRecord

	clock         clockwork.Clock
	sweepInterval time.Duration
	staleAfter    time.Duration

	running bool
	stopCh  chan struct{}
}

// NewPresenceTracker creates a tracker with the default sweep tuning.
func NewPresenceTracker(clock clockwork.Clock) *PresenceTracker {
	return &PresenceTracker{
		records:       make(map[string]*livenessRecord),
		clock:         clock,
		sweepInterval: DefaultSweepInterval,
		staleAfter:    DefaultStaleAfter,
	}
}

// Register records a fresh liveness entry for a connection.
func (t *PresenceTracker) Register(connID string, playerID uuid.UUID, code string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records[connID] = &livenessRecord{
		PlayerID: playerID,
		Code:     code,
		LastSeen: t.clock.Now(),
	}
}

// Touch updates last-seen for a connection. Unknown connections are ignored.
func (t *PresenceTracker) Touch(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.records[connID]; ok {
		rec.LastSeen = t.clock.Now()
	}
}

// Forget drops the liveness record for a connection. Idempotent.
func (t *PresenceTracker) Forget(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, connID)
}

// LivePlayers returns the set of player IDs with a live record for a code.
func (t *PresenceTracker) LivePlayers(code string) map[uuid.UUID]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	live := make(map[uuid.UUID]bool)
	for _, rec := range t.records {
		if rec.Code == code {
			live[rec.PlayerID] = true
		}
	}
	return live
}

// StartSweep launches the background eviction loop. Calling it again while
// a sweeper is already running is a no-op, so there is never more than one.
func (t *PresenceTracker) StartSweep() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	stopCh := t.stopCh
	t.mu.Unlock()

	go t.sweep(stopCh)
	log.Debug().Msg("presence sweep started")
}

// Stop terminates the sweep loop. Idempotent.
func (t *PresenceTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.stopCh)
}

func (t *PresenceTracker) sweep(stopCh chan struct{}) {
	ticker := t.clock.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.Chan():
			t.evictStale()
		}
	}
}

func (t *PresenceTracker) evictStale() {
	cutoff := t.clock.Now().Add(-t.staleAfter)

	t.mu.Lock()
	defer t.mu.Unlock()
	for connID, rec := range t.records {
		if rec.LastSeen.Before(cutoff) {
			delete(t.records, connID)
			log.Debug().
				Str("conn_id", connID).
				Str("quiz_code", rec.Code).
				Str("player_id", rec.PlayerID.String()).
				Msg("evicted stale liveness record")
		}
	}
}
