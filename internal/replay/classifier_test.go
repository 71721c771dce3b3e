package replay

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replaycheck/internal/eventlog"
	"github.com/roach88/replaycheck/internal/stability"
)

var fixedNow = func() time.Time {
	return time.Date(2026, 1, 1, 13, 4, 5, 0, time.UTC)
}

func newCounting(tr *stability.Tracker) *Classifier {
	return NewClassifier(NewCountingStrategy(), tr, WithNow(fixedNow))
}

// Stability fires at t=8000ms; clicks at 1000 (unstable) and 9000 (stable).
// The 9000 click drains the slot queued at 1000.
func TestClassifier_Counting_QueuedThenDrained(t *testing.T) {
	tr := stability.NewTracker()
	c := newCounting(tr)

	e1, err := c.Classify(Event{Timestamp: ms(1000)})
	require.NoError(t, err)
	assert.Equal(t, QueuedOriginal, e1.Classification)
	assert.False(t, e1.WasStable)

	tr.OnStabilityReached() // t=8000

	e2, err := c.Classify(Event{Timestamp: ms(9000)})
	require.NoError(t, err)
	assert.Equal(t, BadReplay, e2.Classification)
	assert.True(t, e2.WasStable)
}

func TestClassifier_Counting_StableClickWithNothingPending(t *testing.T) {
	tr := stability.NewTracker()
	tr.OnStabilityReached()
	c := newCounting(tr)

	e, err := c.Classify(Event{Timestamp: ms(9000)})
	require.NoError(t, err)
	assert.Equal(t, Normal, e.Classification)
	assert.True(t, e.WasStable)
	assert.Equal(t, 0, c.Outstanding())
	assert.Equal(t, 0, c.DoubleFires())
}

func TestClassifier_Counting_ThirdClickDoubleFires(t *testing.T) {
	tr := stability.NewTracker()
	c := newCounting(tr)

	_, err := c.Classify(Event{Timestamp: ms(1000)})
	require.NoError(t, err)
	tr.OnStabilityReached()

	e, err := c.Classify(Event{Timestamp: ms(9500)})
	require.NoError(t, err)
	assert.Equal(t, BadReplay, e.Classification)
	assert.Equal(t, 1, c.DoubleFires())
	assert.Equal(t, 2, c.Total())
	assert.Equal(t, 0, c.Outstanding())

	e, err = c.Classify(Event{Timestamp: ms(9700)})
	require.NoError(t, err)
	assert.Equal(t, Normal, e.Classification)
	assert.Equal(t, 1, c.DoubleFires())
}

func TestClassifier_Counting_AllUnstableAreQueued(t *testing.T) {
	tr := stability.NewTracker()
	c := newCounting(tr)

	const n = 12
	for i := 0; i < n; i++ {
		e, err := c.Classify(Event{Timestamp: ms(int64(100 * i))})
		require.NoError(t, err)
		assert.Equal(t, QueuedOriginal, e.Classification)
	}
	assert.Equal(t, n, c.Outstanding())
	assert.Equal(t, 0, c.DoubleFires())
}

func TestClassifier_Identity_Resubmission(t *testing.T) {
	tr := stability.NewTracker()
	h := stability.NewHandoff()
	h.Mark(ms(4000))
	c := NewClassifier(NewIdentityStrategy(h), tr, WithNow(fixedNow))

	e, err := c.Classify(Event{Timestamp: ms(5000)})
	require.NoError(t, err)
	assert.Equal(t, Normal, e.Classification)

	tr.OnStabilityReached()

	for i := 1; i <= 3; i++ {
		e, err = c.Classify(Event{Timestamp: ms(5000)})
		require.NoError(t, err)
		assert.Equal(t, BadReplay, e.Classification)
		assert.Equal(t, i, c.DoubleFires(), "one increment per resubmission")
	}

	e, err = c.Classify(Event{Timestamp: ms(1500)})
	require.NoError(t, err)
	assert.Equal(t, GoodReplay, e.Classification)
	assert.Equal(t, 3, c.DoubleFires())
}

func TestClassifier_Identity_HandoffUnsetIsNotCounted(t *testing.T) {
	tr := stability.NewTracker()
	c := NewClassifier(NewIdentityStrategy(stability.NewHandoff()), tr, WithNow(fixedNow))

	_, err := c.Classify(Event{Timestamp: ms(10), ID: "evt-1"})
	require.Error(t, err)
	assert.True(t, IsHandoffUnset(err))

	var ce *ClassifyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "evt-1", ce.EventID)

	assert.Equal(t, 0, c.Total())
	assert.Empty(t, c.Entries())
}

func TestClassifier_NegativeTimestampRejected(t *testing.T) {
	c := newCounting(stability.NewTracker())

	_, err := c.Classify(Event{Timestamp: -time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, ErrCodeNegativeTimestamp, ErrorCode(err))
	assert.True(t, IsPreconditionError(err))
	assert.Equal(t, 0, c.Total())
	assert.Equal(t, 0, c.Outstanding(), "rejected events must not queue")
}

func TestClassifier_EntryFields(t *testing.T) {
	tr := stability.NewTracker()
	c := newCounting(tr)

	e1, err := c.Classify(Event{})
	require.NoError(t, err)
	e2, err := c.Classify(Event{})
	require.NoError(t, err)

	assert.Equal(t, 1, e1.Index)
	assert.Equal(t, 2, e2.Index)
	assert.Equal(t, "13:04:05", e1.Time)

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, e2, entries[0], "log is most recent first")
	assert.Equal(t, e1, entries[1])
}

func TestClassifier_SharedLog(t *testing.T) {
	l := eventlog.New[Entry]()
	c := NewClassifier(NewCountingStrategy(), stability.NewTracker(), WithLog(l), WithNow(fixedNow))

	_, err := c.Classify(Event{})
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestClassifier_Snapshot(t *testing.T) {
	tr := stability.NewTracker()
	c := newCounting(tr)
	_, _ = c.Classify(Event{})
	_, _ = c.Classify(Event{})
	tr.OnStabilityReached()
	_, _ = c.Classify(Event{})

	snap := c.Snapshot()
	assert.Equal(t, PolicyCounting, snap.Policy)
	assert.True(t, snap.Stable)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 1, snap.DoubleFires)
	assert.Equal(t, 1, snap.Outstanding)
	require.Len(t, snap.Entries, 3)
	assert.Equal(t, BadReplay, snap.Entries[0].Classification)
}

func TestClassifier_EveryVerdictIsValid(t *testing.T) {
	tr := stability.NewTracker()
	h := stability.NewHandoff()
	h.Mark(ms(500))
	c := NewClassifier(NewIdentityStrategy(h), tr, WithNow(fixedNow))

	for i := 0; i < 40; i++ {
		if i == 20 {
			tr.OnStabilityReached()
		}
		e, err := c.Classify(Event{Timestamp: ms(int64((i % 7) * 200))})
		require.NoError(t, err)
		assert.True(t, e.Classification.Valid(), fmt.Sprintf("event %d", i))
	}
}
