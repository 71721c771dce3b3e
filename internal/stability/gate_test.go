package stability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGate_ReleaseLastTaskStabilizes(t *testing.T) {
	tr := NewTracker()
	g := NewGate(tr)

	releaseA := g.Add()
	releaseB := g.Add()
	assert.Equal(t, 2, g.Pending())

	releaseA()
	assert.False(t, tr.IsStable(), "one task still pending")

	releaseB()
	assert.True(t, tr.IsStable())
	assert.Equal(t, 0, g.Pending())
}

func TestGate_ReleaseIsIdempotent(t *testing.T) {
	tr := NewTracker()
	g := NewGate(tr)

	releaseA := g.Add()
	_ = g.Add()

	releaseA()
	releaseA()
	releaseA()

	assert.Equal(t, 1, g.Pending())
	assert.False(t, tr.IsStable())
}

func TestGate_NoTasksNeverStabilizes(t *testing.T) {
	tr := NewTracker()
	g := NewGate(tr)

	assert.Equal(t, 0, g.Pending())
	assert.False(t, tr.IsStable())
}

func TestGate_HoldFor(t *testing.T) {
	tr := NewTracker()
	g := NewGate(tr)

	g.HoldFor(10 * time.Millisecond)

	select {
	case <-tr.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("gate did not release after the delay")
	}
	assert.True(t, tr.IsStable())
}

func TestGate_HoldFor_Stop(t *testing.T) {
	tr := NewTracker()
	g := NewGate(tr)

	stop := g.HoldFor(time.Hour)
	assert.True(t, stop())
	assert.Equal(t, 1, g.Pending())
	assert.False(t, tr.IsStable())
}
