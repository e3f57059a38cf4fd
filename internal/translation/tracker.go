package translation

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"horse.fit/morph/internal/globaltime"
)

// ActiveTranslation describes one in-flight call.
type ActiveTranslation struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	StartedAt time.Time `json:"started_at"`
	Stopping  bool      `json:"stopping"`
}

type trackedCall struct {
	model     string
	startedAt time.Time
	stop      *StopSignal
}

// Tracker addresses the stop signals of in-flight calls by ID.
type Tracker struct {
	mu    sync.Mutex
	calls map[string]*trackedCall
}

func NewTracker() *Tracker {
	return &Tracker{calls: make(map[string]*trackedCall)}
}

// Begin registers a call and returns its ID, its stop signal and a release
// func that must run when the call ends.
func (t *Tracker) Begin(model string) (string, *StopSignal, func()) {
	id := uuid.NewString()
	call := &trackedCall{
		model:     model,
		startedAt: globaltime.UTC(),
		stop:      NewStopSignal(),
	}

	t.mu.Lock()
	t.calls[id] = call
	t.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.calls, id)
			t.mu.Unlock()
		})
	}
	return id, call.stop, release
}

// Stop fires the signal of one call. It reports false for unknown IDs.
func (t *Tracker) Stop(id string) bool {
	t.mu.Lock()
	call, ok := t.calls[id]
	t.mu.Unlock()
	if !ok {
		return false
	}
	call.stop.Stop()
	return true
}

// StopAll fires every in-flight signal and returns how many were running.
func (t *Tracker) StopAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, call := range t.calls {
		call.stop.Stop()
	}
	return len(t.calls)
}

// Active lists in-flight calls, oldest first.
func (t *Tracker) Active() []ActiveTranslation {
	t.mu.Lock()
	items := make([]ActiveTranslation, 0, len(t.calls))
	for id, call := range t.calls {
		items = append(items, ActiveTranslation{
			ID:        id,
			Model:     call.model,
			StartedAt: call.startedAt,
			Stopping:  call.stop.Stopped(),
		})
	}
	t.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].StartedAt.Equal(items[j].StartedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].StartedAt.Before(items[j].StartedAt)
	})
	return items
}
