package stability

import (
	"sync"
	"time"
)

// HandoffReader exposes the recorded hand-off time.
type HandoffReader interface {
	// At returns the hand-off time and whether it has been set.
	At() (time.Duration, bool)
}

// Handoff records the moment live event handling superseded the
// server-rendered snapshot. Only the first Mark wins.
type Handoff struct {
	mu  sync.RWMutex
	at  time.Duration
	set bool
}

// NewHandoff creates an unset hand-off latch.
func NewHandoff() *Handoff {
	return &Handoff{}
}

// Mark sets the hand-off time. Returns false if it was already set, in which
// case the earlier value is kept.
func (h *Handoff) Mark(at time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.set {
		return false
	}
	h.at = at
	h.set = true
	return true
}

// At implements HandoffReader.
func (h *Handoff) At() (time.Duration, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.at, h.set
}
