package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replaycheck/internal/stability"
)

func ms(n int64) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func handoffAt(at time.Duration) *stability.Handoff {
	h := stability.NewHandoff()
	h.Mark(at)
	return h
}

func TestIdentityStrategy_HandoffUnset(t *testing.T) {
	s := NewIdentityStrategy(stability.NewHandoff())

	_, err := s.Classify(Event{Timestamp: ms(100)}, false)
	require.Error(t, err)
	assert.True(t, IsHandoffUnset(err))
	assert.Equal(t, 0, s.Outstanding(), "rejected event must not be recorded")
}

func TestIdentityStrategy_BeforeHandoffIsGoodReplay(t *testing.T) {
	for _, stable := range []bool{false, true} {
		s := NewIdentityStrategy(handoffAt(ms(4000)))

		for _, ts := range []int64{0, 1, 3999} {
			got, err := s.Classify(Event{Timestamp: ms(ts)}, stable)
			require.NoError(t, err)
			assert.Equal(t, GoodReplay, got, "ts=%d stable=%v", ts, stable)
		}
	}
}

func TestIdentityStrategy_GoodReplayRepeats(t *testing.T) {
	s := NewIdentityStrategy(handoffAt(ms(4000)))

	for i := 0; i < 3; i++ {
		got, err := s.Classify(Event{Timestamp: ms(1000)}, false)
		require.NoError(t, err)
		assert.Equal(t, GoodReplay, got)
	}
	assert.False(t, s.Seen(ms(1000)))
}

func TestIdentityStrategy_DuplicateIsBadReplay(t *testing.T) {
	s := NewIdentityStrategy(handoffAt(ms(4000)))

	got, err := s.Classify(Event{Timestamp: ms(5000)}, false)
	require.NoError(t, err)
	assert.Equal(t, Normal, got)
	assert.True(t, s.Seen(ms(5000)))

	// Replayed after stability with the same timestamp.
	for i := 0; i < 3; i++ {
		got, err = s.Classify(Event{Timestamp: ms(5000)}, true)
		require.NoError(t, err)
		assert.Equal(t, BadReplay, got)
	}
}

func TestIdentityStrategy_StableEventsAreNotRecorded(t *testing.T) {
	s := NewIdentityStrategy(handoffAt(ms(4000)))

	got, err := s.Classify(Event{Timestamp: ms(9000)}, true)
	require.NoError(t, err)
	assert.Equal(t, Normal, got)
	assert.Equal(t, 0, s.Outstanding())

	got, err = s.Classify(Event{Timestamp: ms(9000)}, true)
	require.NoError(t, err)
	assert.Equal(t, Normal, got, "post-stability timestamps are never recorded")
}

func TestIdentityStrategy_HandoffBoundaryIsNormal(t *testing.T) {
	s := NewIdentityStrategy(handoffAt(ms(4000)))

	got, err := s.Classify(Event{Timestamp: ms(4000)}, false)
	require.NoError(t, err)
	assert.Equal(t, Normal, got, "timestamp equal to hand-off is not before it")
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy(PolicyCounting, nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyCounting, s.Policy())

	s, err = NewStrategy(PolicyIdentity, stability.NewHandoff())
	require.NoError(t, err)
	assert.Equal(t, PolicyIdentity, s.Policy())

	_, err = NewStrategy(PolicyIdentity, nil)
	assert.Error(t, err)

	_, err = NewStrategy(Policy("fifo"), nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownPolicy, ErrorCode(err))
}
