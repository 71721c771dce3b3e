package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReadSession returns a stored session.
// Returns an error wrapping ErrNotFound if the token is unknown.
func (s *Store) ReadSession(ctx context.Context, token string) (SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.token, s.policy, s.dedupe, s.handoff_us, s.handoff_seq,
		       s.created_at, s.tool_version,
		       (SELECT COUNT(*) FROM entries e WHERE e.session_token = s.token)
		FROM sessions s
		WHERE s.token = ?
	`, token)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("session %s: %w", token, ErrNotFound)
	}
	if err != nil {
		return SessionRecord{}, err
	}
	return rec, nil
}

// ListSessions returns every stored session, oldest first.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.token, s.policy, s.dedupe, s.handoff_us, s.handoff_seq,
		       s.created_at, s.tool_version,
		       (SELECT COUNT(*) FROM entries e WHERE e.session_token = s.token)
		FROM sessions s
		ORDER BY s.created_at ASC, s.token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionRecord{}
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// ReadEntries returns the entries of a session in arrival order
// (ORDER BY seq ASC). Returns an empty slice (not nil) if there are none.
func (s *Store) ReadEntries(ctx context.Context, token string) ([]EntryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_token, seq, event_id, target, timestamp_us, phase,
		       classification, was_stable, suppressed, idx, display_time
		FROM entries
		WHERE session_token = ?
		ORDER BY seq ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []EntryRecord{}
	for rows.Next() {
		var (
			e           EntryRecord
			timestampUs int64
		)
		if err := rows.Scan(
			&e.SessionToken,
			&e.Seq,
			&e.EventID,
			&e.Target,
			&timestampUs,
			&e.Phase,
			&e.Classification,
			&e.WasStable,
			&e.Suppressed,
			&e.Index,
			&e.DisplayTime,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Timestamp = time.Duration(timestampUs) * time.Microsecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// ClassificationCounts returns the number of classified entries per verdict.
// Suppressed entries are not included.
func (s *Store) ClassificationCounts(ctx context.Context, token string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT classification, COUNT(*)
		FROM entries
		WHERE session_token = ? AND suppressed = 0
		GROUP BY classification
		ORDER BY classification COLLATE BINARY ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query classification counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			c string
			n int
		)
		if err := rows.Scan(&c, &n); err != nil {
			return nil, fmt.Errorf("scan classification count: %w", err)
		}
		counts[c] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classification counts: %w", err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var (
		rec        SessionRecord
		handoffUs  sql.NullInt64
		handoffSeq sql.NullInt64
		createdAt  string
	)
	if err := row.Scan(
		&rec.Token,
		&rec.Policy,
		&rec.Dedupe,
		&handoffUs,
		&handoffSeq,
		&createdAt,
		&rec.ToolVersion,
		&rec.EntryCount,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionRecord{}, err
		}
		return SessionRecord{}, fmt.Errorf("scan session: %w", err)
	}

	if handoffUs.Valid {
		rec.HandoffSet = true
		rec.Handoff = time.Duration(handoffUs.Int64) * time.Microsecond
		rec.HandoffSeq = handoffSeq.Int64
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = t

	return rec, nil
}
