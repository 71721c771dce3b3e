package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVirtualClock_DefaultOrigin(t *testing.T) {
	c := NewVirtualClock(time.Time{})
	assert.Equal(t, DefaultClockStart, c.Now())
	assert.Equal(t, time.Duration(0), c.Offset())
}

func TestVirtualClock_SetAndAdvance(t *testing.T) {
	origin := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewVirtualClock(origin)

	c.Set(1500 * time.Millisecond)
	assert.Equal(t, "09:00:01", c.Now().Format("15:04:05"))

	c.Advance(time.Minute)
	assert.Equal(t, "09:01:01", c.Now().Format("15:04:05"))
	assert.Equal(t, time.Minute+1500*time.Millisecond, c.Offset())
}

func TestVirtualClock_ThreadSafe(t *testing.T) {
	c := NewVirtualClock(time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Millisecond)
			_ = c.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50*time.Millisecond, c.Offset())
}
