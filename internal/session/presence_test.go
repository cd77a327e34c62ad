package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func TestPresenceRegisterAndForget(t *testing.T) {
	tracker := NewPresenceTracker(clockwork.NewFakeClock())
	player := uuid.New()

	tracker.Register("conn-1", player, "ABC123")
	if !tracker.LivePlayers("ABC123")[player] {
		t.Error("expected registered player to be live")
	}

	tracker.Forget("conn-1")
	if tracker.LivePlayers("ABC123")[player] {
		t.Error("expected forgotten player to no longer be live")
	}

	// Forget is idempotent.
	tracker.Forget("conn-1")
}

func TestPresenceLivePlayersScopedToCode(t *testing.T) {
	tracker := NewPresenceTracker(clockwork.NewFakeClock())
	p1 := uuid.New()
	p2 := uuid.New()

	tracker.Register("conn-1", p1, "AAAAAA")
	tracker.Register("conn-2", p2, "BBBBBB")

	live := tracker.LivePlayers("AAAAAA")
	if !live[p1] || live[p2] {
		t.Errorf("expected only p1 live for AAAAAA, got %v", live)
	}
}

func TestPresenceSweepEvictsOnlyStaleRecords(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewPresenceTracker(clock)
	defer tracker.Stop()

	stale := uuid.New()
	fresh := uuid.New()
	tracker.Register("conn-stale", stale, "ABC123")
	tracker.Register("conn-fresh", fresh, "ABC123")

	tracker.StartSweep()
	clock.BlockUntil(1)

	// Heartbeats keep conn-fresh alive while conn-stale goes silent past
	// the staleness threshold.
	for range 4 {
		clock.Advance(DefaultSweepInterval)
		tracker.Touch("conn-fresh")
	}

	eventually(t, func() bool { return !tracker.LivePlayers("ABC123")[stale] },
		"expected stale record to be evicted")
	if !tracker.LivePlayers("ABC123")[fresh] {
		t.Error("expected heartbeating record to survive the sweep")
	}
}

func TestPresenceSweepIsSingleton(t *testing.T) {
	tracker := NewPresenceTracker(clockwork.NewFakeClock())
	defer tracker.Stop()

	tracker.StartSweep()
	first := tracker.stopCh

	// A second start must not spawn a competing sweeper.
	tracker.StartSweep()
	if tracker.stopCh != first {
		t.Error("expected second StartSweep to be a no-op")
	}
}

func TestPresenceStopIsIdempotent(t *testing.T) {
	tracker := NewPresenceTracker(clockwork.NewFakeClock())

	tracker.StartSweep()
	tracker.Stop()
	tracker.Stop()

	// The sweep can be started again after a stop.
	tracker.StartSweep()
	tracker.Stop()
}

func TestPresenceTouchUnknownConnection(t *testing.T) {
	tracker := NewPresenceTracker(clockwork.NewFakeClock())
	tracker.Touch("never-registered")

	if len(tracker.LivePlayers("ABC123")) != 0 {
		t.Error("expected no live players")
	}
}

func TestPresenceTouchRefreshesLastSeen(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewPresenceTracker(clock)
	player := uuid.New()

	tracker.Register("conn-1", player, "ABC123")
	clock.Advance(10 * time.Second)
	tracker.Touch("conn-1")
	clock.Advance(10 * time.Second)

	// 20s since registration but only 10s since the last heartbeat.
	tracker.evictStale()
	if !tracker.LivePlayers("ABC123")[player] {
		t.Error("expected touched record to survive eviction")
	}

	clock.Advance(6 * time.Second)
	tracker.evictStale()
	if tracker.LivePlayers("ABC123")[player] {
		t.Error("expected record to be evicted after staleness threshold")
	}
}
