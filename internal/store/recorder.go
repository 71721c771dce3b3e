package store

import (
	"context"
	"time"

	"github.com/roach88/replaycheck/internal/ir"
	"github.com/roach88/replaycheck/internal/session"
)

// Recorder writes session activity to a Store. It implements session.Sink.
type Recorder struct {
	store *Store
	now   func() time.Time
}

var _ session.Sink = (*Recorder)(nil)

// NewRecorder creates a recorder. A nil now uses time.Now for created_at.
func NewRecorder(s *Store, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: s, now: now}
}

// RecordSession implements session.Sink.
func (r *Recorder) RecordSession(ctx context.Context, info session.Info) error {
	return r.store.WriteSession(ctx, SessionRecord{
		Token:       info.Token,
		Policy:      string(info.Policy),
		Dedupe:      info.Dedupe,
		CreatedAt:   r.now(),
		ToolVersion: ir.ToolVersion,
	})
}

// RecordHandoff implements session.Sink.
func (r *Recorder) RecordHandoff(ctx context.Context, token string, at time.Duration, seq int64) error {
	return r.store.WriteHandoff(ctx, token, at, seq)
}

// RecordOutcome implements session.Sink. Only click outcomes are stored.
func (r *Recorder) RecordOutcome(ctx context.Context, token string, out session.Outcome) error {
	if out.Type != session.EventClick {
		return nil
	}

	e := EntryRecord{
		SessionToken: token,
		Seq:          out.Seq,
		EventID:      out.Event.ID,
		Target:       out.Event.Target,
		Timestamp:    out.Event.Timestamp,
		Phase:        out.Event.Phase.String(),
		WasStable:    out.WasStable,
		Suppressed:   out.Suppressed,
	}
	if out.Entry != nil {
		e.Classification = string(out.Entry.Classification)
		e.Index = out.Entry.Index
		e.DisplayTime = out.Entry.Time
	}

	return r.store.WriteEntry(ctx, e)
}
