package generic

import "sync"

// gate is a resettable readiness signal. Unlike event it can be cleared
// again; waiters released by set observe the next clear on re-check.
type gate struct {
	mu  sync.Mutex
	set bool
	ch  chan struct{}
}

func newGate() *gate {
	return &gate{ch: make(chan struct{})}
}

func (s *gate) raise() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		s.set = true
		close(s.ch)
	}
}

func (s *gate) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		s.set = false
		s.ch = make(chan struct{})
	}
}

func (s *gate) isSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// state returns the current wait channel and whether the gate is set.
// The channel is only valid until the next clear.
func (s *gate) state() (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch, s.set
}
