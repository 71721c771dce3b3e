package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/replaycheck/internal/replay"
	"github.com/roach88/replaycheck/internal/session"
)

// Mismatch is a stored entry whose replayed verdict differs.
type Mismatch struct {
	Seq      int64  `json:"seq"`
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

// ReplayResult compares a stored session with a fresh re-run of its events.
type ReplayResult struct {
	Token      string     `json:"token"`
	Policy     string     `json:"policy"`
	Entries    int        `json:"entries"`
	Mismatches []Mismatch `json:"mismatches"`
}

// Match reports whether every replayed verdict equals the recorded one.
func (r *ReplayResult) Match() bool {
	return len(r.Mismatches) == 0
}

func verdictOf(suppressed bool, classification string) string {
	if suppressed {
		return "suppressed"
	}
	return classification
}

// ReplaySession feeds the stored events of a session, in seq order, through
// a fresh session with the same configuration and compares verdicts.
//
// Markers are reconstructed from the log: hand-off is applied at its stored
// sequence position, and stability just before the first entry recorded as
// stable.
func (s *Store) ReplaySession(ctx context.Context, token string) (*ReplayResult, error) {
	rec, err := s.ReadSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	entries, err := s.ReadEntries(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	policy, err := replay.ParsePolicy(rec.Policy)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	sess, err := session.New(
		session.Config{Policy: policy, Dedupe: rec.Dedupe},
		session.WithTokenGenerator(session.NewSequenceGenerator(token)),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer sess.Close()

	result := &ReplayResult{
		Token:      token,
		Policy:     rec.Policy,
		Entries:    len(entries),
		Mismatches: []Mismatch{},
	}

	handoffApplied := !rec.HandoffSet
	stableApplied := false

	for _, e := range entries {
		if !handoffApplied && e.Seq > rec.HandoffSeq {
			if _, err := sess.Process(ctx, session.Handoff(rec.Handoff)); err != nil {
				return nil, fmt.Errorf("replay hand-off: %w", err)
			}
			handoffApplied = true
		}
		if !stableApplied && e.WasStable {
			if _, err := sess.Process(ctx, session.Stable()); err != nil {
				return nil, fmt.Errorf("replay stability: %w", err)
			}
			stableApplied = true
		}

		phase, err := replay.ParsePhase(e.Phase)
		if err != nil {
			return nil, fmt.Errorf("replay entry %d: %w", e.Seq, err)
		}

		out, err := sess.Process(ctx, session.Click(replay.Event{
			Timestamp: e.Timestamp,
			Phase:     phase,
			ID:        e.EventID,
			Target:    e.Target,
		}))
		if err != nil {
			return nil, fmt.Errorf("replay entry %d: %w", e.Seq, err)
		}

		var classification string
		if out.Entry != nil {
			classification = string(out.Entry.Classification)
		}
		recorded := verdictOf(e.Suppressed, e.Classification)
		replayed := verdictOf(out.Suppressed, classification)
		if recorded != replayed {
			result.Mismatches = append(result.Mismatches, Mismatch{
				Seq:      e.Seq,
				Recorded: recorded,
				Replayed: replayed,
			})
		}
	}

	return result, nil
}
