package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSession(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSessions_Empty(t *testing.T) {
	s := createTestStore(t)

	sessions, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestListSessions_OrderedByCreation(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for i, token := range []string{"late", "early", "middle"} {
		offset := map[string]time.Duration{"early": 0, "middle": time.Minute, "late": time.Hour}[token]
		require.NoError(t, s.WriteSession(ctx, SessionRecord{
			Token:     token,
			Policy:    "counting",
			CreatedAt: testCreatedAt.Add(offset),
		}), "session %d", i)
	}
	require.NoError(t, s.WriteEntry(ctx, EntryRecord{SessionToken: "middle", Seq: 1, EventID: "a"}))
	require.NoError(t, s.WriteEntry(ctx, EntryRecord{SessionToken: "middle", Seq: 2, EventID: "b"}))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "early", sessions[0].Token)
	assert.Equal(t, "middle", sessions[1].Token)
	assert.Equal(t, "late", sessions[2].Token)
	assert.Equal(t, 2, sessions[1].EntryCount)
	assert.Equal(t, 0, sessions[0].EntryCount)
}

func TestReadEntries_OrderedBySeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	writeTestSession(t, s, "s-1", "counting")

	for _, seq := range []int64{5, 1, 3} {
		require.NoError(t, s.WriteEntry(ctx, EntryRecord{SessionToken: "s-1", Seq: seq, EventID: "e"}))
	}

	got, err := s.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 3, 5}, []int64{got[0].Seq, got[1].Seq, got[2].Seq})
}

func TestReadEntries_Empty(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadEntries(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClassificationCounts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	writeTestSession(t, s, "s-1", "counting")

	entries := []EntryRecord{
		{Seq: 1, Classification: "queued-original"},
		{Seq: 2, Classification: "queued-original"},
		{Seq: 3, Classification: "bad-replay", WasStable: true},
		{Seq: 4, Suppressed: true, WasStable: true},
	}
	for _, e := range entries {
		e.SessionToken = "s-1"
		e.EventID = "e"
		require.NoError(t, s.WriteEntry(ctx, e))
	}

	counts, err := s.ClassificationCounts(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"queued-original": 2, "bad-replay": 1}, counts)
}
