package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/replaycheck/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Limit    int // optional - show only the most recent entries
}

// TraceResult holds the stored log of one session.
type TraceResult struct {
	Session store.SessionRecord `json:"session"`

	// Entries are most recent first, like the live log.
	Entries []store.EntryRecord `json:"entries"`
	Stats   TraceStats          `json:"stats"`
}

// TraceStats holds summary counts for a stored session.
type TraceStats struct {
	Total           int            `json:"total"`
	DoubleFires     int            `json:"double_fires"`
	Suppressed      int            `json:"suppressed"`
	Classifications map[string]int `json:"classifications"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the recorded log of a session",
		Long: `Print the classified log of a recorded session, most recent first,
with per-classification counts.

Examples:
  replaycheck trace --db ./replaycheck.db --session test-session-default
  replaycheck trace --db ./replaycheck.db --session s-1 --limit 10
  replaycheck trace --db ./replaycheck.db --session s-1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to trace (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the N most recent entries")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return out.Fail(ExitCommandError, CodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	rec, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, store.ErrNotFound) {
		return out.Fail(ExitCommandError, CodeNotFound, fmt.Sprintf("session not found: %s", opts.Session), nil)
	}
	if err != nil {
		return out.Fail(ExitCommandError, CodeDatabase, "failed to read session", err)
	}

	entries, err := st.ReadEntries(ctx, opts.Session)
	if err != nil {
		return out.Fail(ExitCommandError, CodeDatabase, "failed to read entries", err)
	}
	counts, err := st.ClassificationCounts(ctx, opts.Session)
	if err != nil {
		return out.Fail(ExitCommandError, CodeDatabase, "failed to count classifications", err)
	}

	result := TraceResult{
		Session: rec,
		Entries: buildTraceEntries(entries, opts.Limit),
		Stats:   buildTraceStats(entries, counts),
	}

	if opts.Format == "json" {
		return out.JSON(result, nil)
	}
	printTrace(out, result)
	return nil
}

// buildTraceEntries reverses arrival order and applies the limit.
func buildTraceEntries(entries []store.EntryRecord, limit int) []store.EntryRecord {
	reversed := slices.Clone(entries)
	slices.Reverse(reversed)
	if limit > 0 && len(reversed) > limit {
		reversed = reversed[:limit]
	}
	return reversed
}

func buildTraceStats(entries []store.EntryRecord, counts map[string]int) TraceStats {
	stats := TraceStats{Classifications: counts}
	for _, e := range entries {
		if e.Suppressed {
			stats.Suppressed++
		}
	}
	for _, n := range counts {
		stats.Total += n
	}
	stats.DoubleFires = counts["bad-replay"]
	return stats
}

func printTrace(out *OutputFormatter, result TraceResult) {
	w := out.Writer
	s := result.Session

	fmt.Fprintf(w, "Session: %s\n", s.Token)
	fmt.Fprintf(w, "Policy: %s  Dedupe: %t  Hand-off: %s\n", s.Policy, s.Dedupe, handoffLabel(s))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Log (most recent first):")
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "  (empty)")
	}
	for _, e := range result.Entries {
		if e.Suppressed {
			fmt.Fprintf(w, "  [%d] %-12s suppressed      ts=%dms\n", e.Seq, "", e.Timestamp.Milliseconds())
			continue
		}
		fmt.Fprintf(w, "  [%d] #%-3d %s  %-15s ts=%dms\n",
			e.Seq, e.Index, e.DisplayTime, e.Classification, e.Timestamp.Milliseconds())
		if out.Verbose {
			fmt.Fprintf(w, "       id=%s target=%q phase=%q stable=%t\n", e.EventID, e.Target, e.Phase, e.WasStable)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d  Double fires: %d  Suppressed: %d\n",
		result.Stats.Total, result.Stats.DoubleFires, result.Stats.Suppressed)
}
