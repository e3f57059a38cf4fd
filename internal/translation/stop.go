package translation

import "sync/atomic"

// StopSignal asks a running translation to stop at the next batch
// boundary. The zero value is ready to use; Stop may be called any number
// of times from any goroutine.
type StopSignal struct {
	fired atomic.Bool
}

func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

// Stop fires the signal. A nil signal ignores the call.
func (s *StopSignal) Stop() {
	if s == nil {
		return
	}
	s.fired.Store(true)
}

// Stopped polls the signal without blocking. A nil signal never fires.
func (s *StopSignal) Stopped() bool {
	if s == nil {
		return false
	}
	return s.fired.Load()
}
