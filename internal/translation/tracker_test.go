package translation

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"horse.fit/morph/internal/globaltime"
)

func TestTracker_BeginStopRelease(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	id, stop, release := tracker.Begin("llama3")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected a uuid, got %q", id)
	}
	if stop.Stopped() {
		t.Fatalf("new signal must not be fired")
	}

	if !tracker.Stop(id) {
		t.Fatalf("expected Stop to find the call")
	}
	if !stop.Stopped() {
		t.Fatalf("expected the signal to fire")
	}
	if !tracker.Stop(id) {
		t.Fatalf("stopping twice must be allowed")
	}

	active := tracker.Active()
	if len(active) != 1 || active[0].ID != id || !active[0].Stopping || active[0].Model != "llama3" {
		t.Fatalf("unexpected active list: %+v", active)
	}

	release()
	release()
	if tracker.Stop(id) {
		t.Fatalf("released calls must be forgotten")
	}
	if len(tracker.Active()) != 0 {
		t.Fatalf("expected no active calls")
	}
}

func TestTracker_StopUnknown(t *testing.T) {
	t.Parallel()

	if NewTracker().Stop("missing") {
		t.Fatalf("expected unknown id to report false")
	}
}

func TestTracker_StopAll(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	_, first, releaseFirst := tracker.Begin("a")
	_, second, releaseSecond := tracker.Begin("b")
	defer releaseFirst()
	defer releaseSecond()

	if n := tracker.StopAll(); n != 2 {
		t.Fatalf("expected 2 stopped, got %d", n)
	}
	if !first.Stopped() || !second.Stopped() {
		t.Fatalf("expected every signal to fire")
	}
}

func TestTracker_ActiveOldestFirst(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	t.Cleanup(globaltime.ResetTime)

	tracker := NewTracker()
	globaltime.SetMockTime(base.Add(time.Minute))
	newer, _, releaseNewer := tracker.Begin("newer")
	defer releaseNewer()
	globaltime.SetMockTime(base)
	older, _, releaseOlder := tracker.Begin("older")
	defer releaseOlder()

	active := tracker.Active()
	if len(active) != 2 || active[0].ID != older || active[1].ID != newer {
		t.Fatalf("unexpected order: %+v", active)
	}
}
