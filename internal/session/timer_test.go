package session

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestTimerCountsDownAndExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rb := newRecordingBroadcaster()
	timers := NewTimerTable(clock, rb)

	timers.Start("ABC123", 2)
	if !timers.Running("ABC123") {
		t.Fatal("expected countdown to be running")
	}

	clock.BlockUntil(1)

	clock.Advance(time.Second)
	e := rb.waitFor(t, EventTypeTimerUpdate)
	if got := decodePayload[TimerUpdatePayload](t, e).TimeLeft; got != 1 {
		t.Errorf("expected time_left 1, got %d", got)
	}

	clock.Advance(time.Second)
	e = rb.waitFor(t, EventTypeTimerUpdate)
	if got := decodePayload[TimerUpdatePayload](t, e).TimeLeft; got != 0 {
		t.Errorf("expected time_left 0, got %d", got)
	}

	rb.waitFor(t, EventTypeTimeExpired)
	if rb.broadcastCount(EventTypeTimeExpired) != 1 {
		t.Errorf("expected exactly one time_expired, got %d", rb.broadcastCount(EventTypeTimeExpired))
	}

	// A finished countdown removes its own entry.
	eventually(t, func() bool { return !timers.Running("ABC123") },
		"expected countdown entry to be removed after expiry")
}

func TestTimerRestartLeavesSingleCountdown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rb := newRecordingBroadcaster()
	timers := NewTimerTable(clock, rb)

	timers.Start("ABC123", 30)
	clock.BlockUntil(1)

	// Replacing the countdown must fully stop the old loop first.
	timers.Start("ABC123", 30)
	clock.BlockUntil(1)

	clock.Advance(time.Second)
	rb.waitFor(t, EventTypeTimerUpdate)

	// Give a straggling loop a moment to misbehave before counting.
	time.Sleep(50 * time.Millisecond)
	if got := rb.broadcastCount(EventTypeTimerUpdate); got != 1 {
		t.Errorf("expected exactly one timer_update after restart, got %d", got)
	}
}

func TestTimerConcurrentStartsLeaveSingleCountdown(t *testing.T) {
	for i := range 10 {
		clock := clockwork.NewFakeClock()
		rb := newRecordingBroadcaster()
		timers := NewTimerTable(clock, rb)

		// Racing starters must serialize through the stop-and-swap, never
		// each launch a loop after both saw an empty table.
		release := make(chan struct{})
		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-release
				timers.Start("ABC123", 30)
			}()
		}
		close(release)
		wg.Wait()

		clock.BlockUntil(1)
		clock.Advance(time.Second)
		rb.waitFor(t, EventTypeTimerUpdate)

		time.Sleep(20 * time.Millisecond)
		if got := rb.broadcastCount(EventTypeTimerUpdate); got != 1 {
			t.Fatalf("iteration %d: expected one live countdown, got %d timer_update broadcasts", i, got)
		}
		timers.Stop("ABC123")
	}
}

func TestTimerStopPreventsExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rb := newRecordingBroadcaster()
	timers := NewTimerTable(clock, rb)

	timers.Start("ABC123", 1)
	clock.BlockUntil(1)
	timers.Stop("ABC123")

	if timers.Running("ABC123") {
		t.Error("expected countdown to be gone after stop")
	}

	clock.Advance(time.Second)
	time.Sleep(50 * time.Millisecond)
	if got := rb.broadcastCount(EventTypeTimeExpired); got != 0 {
		t.Errorf("expected no time_expired after stop, got %d", got)
	}
	if got := rb.broadcastCount(EventTypeTimerUpdate); got != 0 {
		t.Errorf("expected no timer_update after stop, got %d", got)
	}
}

func TestTimerStopIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimerTable(clock, newRecordingBroadcaster())

	// Stopping an absent countdown is a no-op.
	timers.Stop("ABC123")

	timers.Start("ABC123", 5)
	clock.BlockUntil(1)
	timers.Stop("ABC123")
	timers.Stop("ABC123")

	if timers.Running("ABC123") {
		t.Error("expected countdown to be stopped")
	}
}

func TestTimersAreIndependentPerCode(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rb := newRecordingBroadcaster()
	timers := NewTimerTable(clock, rb)

	timers.Start("AAAAAA", 5)
	timers.Start("BBBBBB", 5)
	clock.BlockUntil(2)

	timers.Stop("AAAAAA")
	if timers.Running("AAAAAA") {
		t.Error("expected stopped countdown to be gone")
	}
	if !timers.Running("BBBBBB") {
		t.Error("expected other session's countdown to keep running")
	}

	clock.Advance(time.Second)
	e := rb.waitFor(t, EventTypeTimerUpdate)
	if e.QuizCode != "BBBBBB" {
		t.Errorf("expected tick for BBBBBB only, got %s", e.QuizCode)
	}
}
