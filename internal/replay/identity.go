package replay

import (
	"time"

	"github.com/roach88/replaycheck/internal/stability"
)

// IdentityStrategy classifies by exact event timestamp and the hand-off
// time.
//
// The seen set only grows, and only while the application is unstable; it
// is never pruned. Events older than the hand-off are legitimate replays and
// are not recorded, so they stay good-replay however often they arrive.
type IdentityStrategy struct {
	handoff stability.HandoffReader
	seen    map[time.Duration]struct{}
}

// NewIdentityStrategy creates a strategy reading the hand-off time from h.
func NewIdentityStrategy(h stability.HandoffReader) *IdentityStrategy {
	return &IdentityStrategy{
		handoff: h,
		seen:    make(map[time.Duration]struct{}),
	}
}

// Policy implements Strategy.
func (s *IdentityStrategy) Policy() Policy {
	return PolicyIdentity
}

// Classify implements Strategy.
// Returns a HANDOFF_UNSET ClassifyError if the hand-off time is not known.
func (s *IdentityStrategy) Classify(ev Event, stable bool) (Classification, error) {
	hydratedAt, ok := s.handoff.At()
	if !ok {
		return "", NewHandoffUnsetError()
	}

	if _, dup := s.seen[ev.Timestamp]; dup {
		return BadReplay, nil
	}
	if ev.Timestamp < hydratedAt {
		return GoodReplay, nil
	}
	if !stable {
		s.seen[ev.Timestamp] = struct{}{}
	}
	return Normal, nil
}

// Outstanding implements Strategy and returns the number of recorded
// timestamps.
func (s *IdentityStrategy) Outstanding() int {
	return len(s.seen)
}

// Seen reports whether ts has been recorded.
func (s *IdentityStrategy) Seen(ts time.Duration) bool {
	_, ok := s.seen[ts]
	return ok
}
