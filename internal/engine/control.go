package engine

import "sync"

// signal is a control request delivered asynchronously to a session's
// processing loop.
type signal int

const (
	sigNone signal = iota
	sigPause
	sigResume
	sigCancel
)

// controlSlot holds at most one pending control signal per session. The
// processing loop polls it only at page boundaries, which bounds
// pause/cancel latency to one page's processing time; a later signal
// replaces an earlier unconsumed one (cancel after pause wins).
type controlSlot struct {
	mu      sync.Mutex
	pending signal
	notify  chan struct{}
}

func newControlSlot() *controlSlot {
	return &controlSlot{notify: make(chan struct{}, 1)}
}

// set stores the signal and wakes a parked loop if there is one.
func (c *controlSlot) set(s signal) {
	c.mu.Lock()
	c.pending = s
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// take returns and clears the pending signal.
func (c *controlSlot) take() signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.pending
	c.pending = sigNone
	return s
}

// wait blocks until a signal arrives. Used by a paused loop parked at a
// page boundary.
func (c *controlSlot) wait() {
	<-c.notify
}
