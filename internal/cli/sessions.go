package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/replaycheck/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Long: `List every session recorded in a database, oldest first.

Examples:
  replaycheck sessions --db ./replaycheck.db
  replaycheck sessions --db ./replaycheck.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return out.Fail(ExitCommandError, CodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	sessions, err := st.ListSessions(cmd.Context())
	if err != nil {
		return out.Fail(ExitCommandError, CodeDatabase, "failed to list sessions", err)
	}

	if opts.Format == "json" {
		return out.JSON(sessions, nil)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out.Writer, "No sessions found in database.")
		return nil
	}

	tw := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tPOLICY\tDEDUPE\tHAND-OFF\tENTRIES\tCREATED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%d\t%s\n",
			s.Token, s.Policy, s.Dedupe, handoffLabel(s), s.EntryCount,
			s.CreatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func handoffLabel(s store.SessionRecord) string {
	if !s.HandoffSet {
		return "-"
	}
	return fmt.Sprintf("%dms", s.Handoff.Milliseconds())
}
