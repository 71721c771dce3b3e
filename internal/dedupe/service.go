// Package dedupe suppresses framework-level double dispatch before
// application logic sees an event.
//
// The service is a presence test plus a conditional insert, not a counter.
// An identity is recorded only for original (non-replay) dispatches that
// arrive while the application is unstable, the only window in which the
// framework queues events for replay. Once stable, the set stops growing.
package dedupe

import (
	"sync"

	"github.com/roach88/replaycheck/internal/replay"
	"github.com/roach88/replaycheck/internal/stability"
)

// Service tracks handled event identities.
//
// Thread-safety: safe for concurrent use via internal mutex.
type Service struct {
	mu        sync.Mutex
	stability stability.Reader
	handled   map[string]struct{}
}

// New creates a service reading stability from r.
func New(r stability.Reader) *Service {
	return &Service{
		stability: r,
		handled:   make(map[string]struct{}),
	}
}

// IsDuplicate reports whether ev's identity was already handled.
//
// If not, and the application is unstable and ev is not itself a replay
// dispatch, the identity is recorded so a later replay is caught.
// Identities are never removed.
func (s *Service) IsDuplicate(ev replay.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handled[ev.ID]; ok {
		return true
	}
	s.recordLocked(ev, s.stability.IsStable())
	return false
}

// Seen reports whether id was already handled, without recording anything.
func (s *Service) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handled[id]
	return ok
}

// Record remembers ev's identity if it was dispatched while unstable and is
// not a replay. Callers that may still reject ev use Seen first and Record
// only once ev is accepted.
func (s *Service) Record(ev replay.Event, stable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked(ev, stable)
}

func (s *Service) recordLocked(ev replay.Event, stable bool) {
	if !stable && ev.Phase != replay.PhaseReplay {
		s.handled[ev.ID] = struct{}{}
	}
}

// Len returns the number of recorded identities.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handled)
}
