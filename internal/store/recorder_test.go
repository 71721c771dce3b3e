package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replaycheck/internal/replay"
	"github.com/roach88/replaycheck/internal/session"
)

func ms(n int64) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func newRecordedSession(t *testing.T, st *Store, token string, cfg session.Config) *session.Session {
	t.Helper()
	sess, err := session.New(cfg,
		session.WithTokenGenerator(session.NewSequenceGenerator(token)),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		session.WithSink(NewRecorder(st, func() time.Time { return testCreatedAt })),
	)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func TestRecorder_PersistsSession(t *testing.T) {
	ctx := context.Background()
	st := createTestStore(t)
	sess := newRecordedSession(t, st, "rec-1", session.Config{Policy: replay.PolicyIdentity, Dedupe: true})

	steps := []session.Event{
		session.Handoff(ms(4000)),
		session.Click(replay.Event{Timestamp: ms(1000), Phase: replay.PhaseReplay, ID: "a"}),
		session.Click(replay.Event{Timestamp: ms(5000), Phase: replay.PhaseOriginal, ID: "b"}),
		session.Click(replay.Event{Timestamp: ms(5000), Phase: replay.PhaseReplay, ID: "b"}),
		session.Stable(),
		session.Click(replay.Event{Timestamp: ms(9000), ID: "c", Target: "button#buy"}),
	}
	for _, ev := range steps {
		_, err := sess.Process(ctx, ev)
		require.NoError(t, err)
	}

	rec, err := st.ReadSession(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "identity", rec.Policy)
	assert.True(t, rec.Dedupe)
	assert.True(t, rec.HandoffSet)
	assert.Equal(t, ms(4000), rec.Handoff)
	assert.Equal(t, int64(1), rec.HandoffSeq)
	assert.Equal(t, 4, rec.EntryCount)

	entries, err := st.ReadEntries(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, "good-replay", entries[0].Classification)
	assert.Equal(t, "replay", entries[0].Phase)
	assert.Equal(t, "normal", entries[1].Classification)
	assert.True(t, entries[2].Suppressed)
	assert.Empty(t, entries[2].Classification)
	assert.Equal(t, "normal", entries[3].Classification)
	assert.True(t, entries[3].WasStable)
	assert.Equal(t, "button#buy", entries[3].Target)
	assert.Equal(t, 3, entries[3].Index)
}

func TestReplaySession_Matches(t *testing.T) {
	ctx := context.Background()
	st := createTestStore(t)
	sess := newRecordedSession(t, st, "rep-1", session.Config{Policy: replay.PolicyCounting})

	for _, ev := range []session.Event{
		session.Click(replay.Event{Timestamp: ms(1000)}),
		session.Click(replay.Event{Timestamp: ms(2000)}),
		session.Stable(),
		session.Click(replay.Event{Timestamp: ms(1000), Phase: replay.PhaseReplay}),
		session.Click(replay.Event{Timestamp: ms(2000), Phase: replay.PhaseReplay}),
		session.Click(replay.Event{Timestamp: ms(9000)}),
	} {
		_, err := sess.Process(ctx, ev)
		require.NoError(t, err)
	}

	result, err := st.ReplaySession(ctx, "rep-1")
	require.NoError(t, err)
	assert.True(t, result.Match(), "mismatches: %v", result.Mismatches)
	assert.Equal(t, 5, result.Entries)
	assert.Equal(t, "counting", result.Policy)
}

func TestReplaySession_IdentityWithHandoff(t *testing.T) {
	ctx := context.Background()
	st := createTestStore(t)
	sess := newRecordedSession(t, st, "rep-2", session.Config{Policy: replay.PolicyIdentity})

	for _, ev := range []session.Event{
		session.Handoff(ms(4000)),
		session.Click(replay.Event{Timestamp: ms(500)}),
		session.Click(replay.Event{Timestamp: ms(4500)}),
		session.Click(replay.Event{Timestamp: ms(4500)}),
	} {
		_, err := sess.Process(ctx, ev)
		require.NoError(t, err)
	}

	result, err := st.ReplaySession(ctx, "rep-2")
	require.NoError(t, err)
	assert.True(t, result.Match(), "mismatches: %v", result.Mismatches)
}

func TestReplaySession_DedupeAfterRejectedClick(t *testing.T) {
	ctx := context.Background()
	st := createTestStore(t)
	sess := newRecordedSession(t, st, "rep-3", session.Config{Policy: replay.PolicyIdentity, Dedupe: true})

	_, err := sess.Process(ctx, session.Click(replay.Event{Timestamp: ms(1000), ID: "x"}))
	require.True(t, replay.IsHandoffUnset(err))

	for _, ev := range []session.Event{
		session.Handoff(ms(500)),
		session.Click(replay.Event{Timestamp: ms(1000), ID: "x"}),
		session.Click(replay.Event{Timestamp: ms(1000), ID: "x", Phase: replay.PhaseReplay}),
	} {
		_, err := sess.Process(ctx, ev)
		require.NoError(t, err)
	}

	entries, err := st.ReadEntries(ctx, "rep-3")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "normal", entries[0].Classification)
	assert.True(t, entries[1].Suppressed)

	result, err := st.ReplaySession(ctx, "rep-3")
	require.NoError(t, err)
	assert.True(t, result.Match(), "mismatches: %v", result.Mismatches)
}

func TestReplaySession_DetectsTampering(t *testing.T) {
	ctx := context.Background()
	st := createTestStore(t)
	writeTestSession(t, st, "tampered", "counting")

	require.NoError(t, st.WriteEntry(ctx, EntryRecord{SessionToken: "tampered", Seq: 1, EventID: "a", Classification: "normal"}))

	result, err := st.ReplaySession(ctx, "tampered")
	require.NoError(t, err)
	assert.False(t, result.Match())
	require.Len(t, result.Mismatches, 1)
	assert.Equal(t, Mismatch{Seq: 1, Recorded: "normal", Replayed: "queued-original"}, result.Mismatches[0])
}

func TestReplaySession_UnknownSession(t *testing.T) {
	st := createTestStore(t)

	_, err := st.ReplaySession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
