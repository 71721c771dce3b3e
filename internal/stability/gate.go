package stability

import (
	"sync"
	"time"
)

// DefaultStabilityDelay is how long the demo keeps the application unstable,
// giving a window in which clicks are queued for replay.
const DefaultStabilityDelay = 8 * time.Second

// Gate counts pending tasks and reports stability to a Tracker once the last
// task is released.
//
// A gate that never had a task added never reports stability on its own;
// the transition requires at least one Add/release pair. This matches a
// framework that starts with work in flight.
type Gate struct {
	mu      sync.Mutex
	tracker *Tracker
	pending int
	added   bool
}

// NewGate creates a gate that drives the given tracker.
func NewGate(t *Tracker) *Gate {
	return &Gate{tracker: t}
}

// Add registers a pending task and returns its release function.
// Release is idempotent; only the first call decrements the count.
func (g *Gate) Add() (release func()) {
	g.mu.Lock()
	g.pending++
	g.added = true
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(g.release)
	}
}

func (g *Gate) release() {
	g.mu.Lock()
	g.pending--
	done := g.pending == 0 && g.added
	g.mu.Unlock()

	if done {
		g.tracker.OnStabilityReached()
	}
}

// Pending returns the number of unreleased tasks.
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// HoldFor registers one task and releases it after d.
// The returned stop function cancels the timer without releasing the task,
// leaving the tracker unstable; it reports whether the timer was stopped
// before firing.
func (g *Gate) HoldFor(d time.Duration) (stop func() bool) {
	release := g.Add()
	timer := time.AfterFunc(d, release)
	return timer.Stop
}
