package replay

// CountingStrategy classifies by pairing unstable arrivals with later
// stable arrivals.
//
// No identity crosses the hydration boundary in this model, so only a count
// of pending replays is kept. Any post-stability arrival drains one slot,
// whichever original it corresponds to.
type CountingStrategy struct {
	pending int
}

// NewCountingStrategy creates a strategy with nothing pending.
func NewCountingStrategy() *CountingStrategy {
	return &CountingStrategy{}
}

// Policy implements Strategy.
func (s *CountingStrategy) Policy() Policy {
	return PolicyCounting
}

// Classify implements Strategy. It never fails.
func (s *CountingStrategy) Classify(_ Event, stable bool) (Classification, error) {
	if !stable {
		s.pending++
		return QueuedOriginal, nil
	}
	if s.pending > 0 {
		s.pending--
		return BadReplay, nil
	}
	return Normal, nil
}

// Outstanding implements Strategy and returns the pending replay count.
func (s *CountingStrategy) Outstanding() int {
	return s.pending
}

// Pending returns the number of queued originals not yet drained.
func (s *CountingStrategy) Pending() int {
	return s.pending
}
