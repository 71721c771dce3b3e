package replay

import (
	"fmt"

	"github.com/roach88/replaycheck/internal/stability"
)

// Strategy decides the verdict for one validated event.
//
// Implementations own their own state (pending counter, seen set) and are
// called from a single goroutine by the Classifier. stable is read fresh by
// the caller for every event.
type Strategy interface {
	// Policy names the strategy.
	Policy() Policy

	// Classify returns the verdict for ev. On error the strategy's state
	// must be unchanged.
	Classify(ev Event, stable bool) (Classification, error)

	// Outstanding reports the strategy's bookkeeping size: pending replays
	// for CountingStrategy, recorded timestamps for IdentityStrategy.
	Outstanding() int
}

// NewStrategy builds the strategy for policy. IdentityStrategy needs a
// hand-off reader; CountingStrategy ignores it.
func NewStrategy(policy Policy, handoff stability.HandoffReader) (Strategy, error) {
	switch policy {
	case PolicyCounting:
		return NewCountingStrategy(), nil
	case PolicyIdentity:
		if handoff == nil {
			return nil, fmt.Errorf("identity strategy requires a hand-off reader")
		}
		return NewIdentityStrategy(handoff), nil
	default:
		return nil, NewUnknownPolicyError(string(policy))
	}
}
