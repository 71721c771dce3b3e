package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/replaycheck/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []*store.ReplayResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded sessions and verify classifications",
		Long: `Feed the recorded events of each session through a fresh session with
the same policy and dedupe setting, and verify that every verdict is
reproduced.

Exit codes:
  0 - Every session reproduced its verdicts
  1 - At least one verdict differs
  2 - Command error (database not found, etc.)

Examples:
  replaycheck replay --db ./replaycheck.db
  replaycheck replay --db ./replaycheck.db --session test-session-default
  replaycheck replay --db ./replaycheck.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return out.Fail(ExitCommandError, CodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	var tokens []string
	if opts.Session != "" {
		tokens = []string{opts.Session}
	} else {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return out.Fail(ExitCommandError, CodeDatabase, "failed to list sessions", err)
		}
		for _, s := range sessions {
			tokens = append(tokens, s.Token)
		}
	}

	result := ReplayResult{
		Sessions:         make([]*store.ReplayResult, 0, len(tokens)),
		TotalSessions:    len(tokens),
		AllDeterministic: true,
	}

	for _, token := range tokens {
		r, err := st.ReplaySession(ctx, token)
		if errors.Is(err, store.ErrNotFound) {
			return out.Fail(ExitCommandError, CodeNotFound, fmt.Sprintf("session not found: %s", token), nil)
		}
		if err != nil {
			return out.Fail(ExitCommandError, CodeDatabase, fmt.Sprintf("failed to replay session %s", token), err)
		}
		out.VerboseLog("replayed %s: %d entries, %d mismatches", token, r.Entries, len(r.Mismatches))

		result.Sessions = append(result.Sessions, r)
		if !r.Match() {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		var cliErr *CLIError
		if !result.AllDeterministic {
			cliErr = &CLIError{Code: CodeMismatch, Message: "replayed verdicts differ from the recorded log"}
		}
		if err := out.JSON(result, cliErr); err != nil {
			return err
		}
	} else {
		printReplay(out, result)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replayed verdicts differ from the recorded log")
	}
	return nil
}

func printReplay(out *OutputFormatter, result ReplayResult) {
	w := out.Writer

	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return
	}

	for _, r := range result.Sessions {
		if r.Match() {
			fmt.Fprintf(w, "✓ %s (%s, %d entries)\n", r.Token, r.Policy, r.Entries)
			continue
		}
		fmt.Fprintf(w, "✗ %s (%s, %d entries)\n", r.Token, r.Policy, r.Entries)
		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "  seq %d: recorded %s, replayed %s\n", m.Seq, m.Recorded, m.Replayed)
		}
	}

	fmt.Fprintln(w)
	if result.AllDeterministic {
		fmt.Fprintf(w, "All %d session(s) reproduced their verdicts.\n", result.TotalSessions)
	} else {
		fmt.Fprintln(w, "Replay mismatch detected.")
	}
}
