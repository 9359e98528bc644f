package generic

import "sync"

// event is a one-shot broadcast signal. Setting it twice is a no-op.
type event struct {
	once sync.Once
	ch   chan struct{}
}

func newEvent() *event {
	return &event{ch: make(chan struct{})}
}

func (e *event) set() {
	e.once.Do(func() { close(e.ch) })
}

// wait returns a channel that is closed once the event is set.
func (e *event) wait() <-chan struct{} {
	return e.ch
}

func (e *event) isSet() bool {
	select {
	case <-e.ch:
		return true
	default:
		return false
	}
}
