package testutil

import (
	"sync"
	"time"
)

// DefaultClockStart is the wall-clock origin of a scenario when none is given.
var DefaultClockStart = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// VirtualClock is a wall clock that only moves when told to.
//
// Scenario time is an offset from a fixed origin, so log display times are
// reproducible.
//
// Thread-safety: all methods are safe for concurrent use.
type VirtualClock struct {
	mu     sync.Mutex
	origin time.Time
	offset time.Duration
}

// NewVirtualClock creates a clock at origin. A zero origin uses
// DefaultClockStart.
func NewVirtualClock(origin time.Time) *VirtualClock {
	if origin.IsZero() {
		origin = DefaultClockStart
	}
	return &VirtualClock{origin: origin}
}

// Now returns origin plus the current offset.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.origin.Add(c.offset)
}

// Set moves the clock to origin+offset. Moving backwards is allowed; the
// harness only ever sets non-decreasing offsets.
func (c *VirtualClock) Set(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = offset
}

// Advance moves the clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

// Offset returns the time elapsed since origin.
func (c *VirtualClock) Offset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}
