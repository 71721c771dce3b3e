package store

import (
	"context"
	"fmt"
	"time"
)

// WriteSession inserts a session row.
// Uses ON CONFLICT(token) DO NOTHING; re-recording a session is a no-op.
func (s *Store) WriteSession(ctx context.Context, rec SessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, policy, dedupe, created_at, tool_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		rec.Token,
		rec.Policy,
		rec.Dedupe,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.ToolVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteHandoff records the hand-off time of a session and the sequence
// number at which it was observed. The first recorded hand-off wins.
func (s *Store) WriteHandoff(ctx context.Context, token string, at time.Duration, seq int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET handoff_us = ?, handoff_seq = ?
		WHERE token = ? AND handoff_us IS NULL
	`, at.Microseconds(), seq, token)
	if err != nil {
		return fmt.Errorf("write handoff: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write handoff: %w", err)
	}
	if n == 0 {
		if _, err := s.ReadSession(ctx, token); err != nil {
			return fmt.Errorf("write handoff: %w", err)
		}
	}
	return nil
}

// WriteEntry inserts an entry row.
// Uses ON CONFLICT DO NOTHING; a second entry with the same
// (session_token, seq) is silently ignored.
//
// The session must exist (foreign key constraint).
func (s *Store) WriteEntry(ctx context.Context, e EntryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries
		(session_token, seq, event_id, target, timestamp_us, phase,
		 classification, was_stable, suppressed, idx, display_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		e.SessionToken,
		e.Seq,
		e.EventID,
		e.Target,
		e.Timestamp.Microseconds(),
		e.Phase,
		e.Classification,
		e.WasStable,
		e.Suppressed,
		e.Index,
		e.DisplayTime,
	)
	if err != nil {
		return fmt.Errorf("write entry %d: %w", e.Seq, err)
	}
	return nil
}
