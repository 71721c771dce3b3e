package stability

import (
	"context"
	"sync"
	"sync/atomic"
)

// Reader is the read-only view of a Tracker handed to classifiers.
type Reader interface {
	IsStable() bool
}

// Tracker is a monotone one-shot latch.
//
// The zero value is not usable; construct with NewTracker.
//
// Thread-safety: all methods are safe for concurrent use. The transition may
// be triggered from a timer goroutine while a session goroutine reads it.
type Tracker struct {
	stable atomic.Bool
	once   sync.Once
	done   chan struct{}
}

// NewTracker creates a tracker in the unstable state.
func NewTracker() *Tracker {
	return &Tracker{done: make(chan struct{})}
}

// OnStabilityReached flips the tracker to stable. Calls after the first are
// no-ops, so a framework that signals more than once is harmless.
func (t *Tracker) OnStabilityReached() {
	t.once.Do(func() {
		t.stable.Store(true)
		close(t.done)
	})
}

// IsStable reports the current state.
func (t *Tracker) IsStable() bool {
	return t.stable.Load()
}

// Done returns a channel that is closed when the tracker becomes stable.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Subscription is a pending one-shot stability callback.
type Subscription struct {
	cancel chan struct{}
	once   sync.Once
	fired  atomic.Bool
	exited chan struct{}
}

// Subscribe runs fn exactly once when the tracker becomes stable.
//
// fn is not called if Unsubscribe is called first or ctx ends first. If the
// tracker is already stable, fn runs promptly on the subscription goroutine.
//
// The returned Subscription must be released with Unsubscribe when the owner
// goes away; releasing after fn has run is allowed and cheap.
func (t *Tracker) Subscribe(ctx context.Context, fn func()) *Subscription {
	s := &Subscription{
		cancel: make(chan struct{}),
		exited: make(chan struct{}),
	}

	go func() {
		defer close(s.exited)
		select {
		case <-t.done:
			// Unsubscribe may race with the transition; cancellation wins.
			select {
			case <-s.cancel:
				return
			default:
			}
			s.fired.Store(true)
			fn()
		case <-s.cancel:
		case <-ctx.Done():
		}
	}()

	return s
}

// Unsubscribe releases the subscription and waits for its goroutine to exit.
// Safe to call more than once. Must not be called from inside the callback.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.cancel)
	})
	<-s.exited
}

// Fired reports whether the callback has run.
func (s *Subscription) Fired() bool {
	return s.fired.Load()
}
