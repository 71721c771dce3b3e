package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/replaycheck/internal/harness"
	"github.com/roach88/replaycheck/internal/session"
	"github.com/roach88/replaycheck/internal/store"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Database string // optional - record the run
	Session  string // optional - overrides the scenario's session token
}

// SimulateResult is the JSON payload of the simulate command.
type SimulateResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Errors   []string             `json:"errors,omitempty"`
	Trace    []harness.TraceEvent `json:"trace"`
	Final    session.Snapshot     `json:"final"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <scenario>",
		Short: "Run one scenario and print the classified log",
		Long: `Run one scenario file through a fresh session and print the
classified log, most recent first, with the final counters.

With --db the session and every classified click are recorded so they can
be inspected with "trace" and verified with "replay".

Exit codes:
  0 - Scenario ran and every expectation held
  1 - An expectation or assertion failed
  2 - Command error (unreadable scenario, database error, etc.)

Examples:
  replaycheck simulate ./scenarios/counting_drain.yaml
  replaycheck simulate ./scenarios/identity.cue --db ./replaycheck.db
  replaycheck simulate ./scenarios/counting_drain.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token (default: from the scenario)")

	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return out.Fail(ExitCommandError, CodeLoad, "failed to load scenario", err)
	}
	if opts.Session != "" {
		scenario.SessionToken = opts.Session
	}

	sessionOpts := []session.Option{
		session.WithLogger(opts.logger(out.GetErrWriter())),
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return out.Fail(ExitCommandError, CodeDatabase, "failed to open database", err)
		}
		defer st.Close()
		sessionOpts = append(sessionOpts, session.WithSink(store.NewRecorder(st, nil)))
		out.VerboseLog("recording to %s", opts.Database)
	}

	result, err := harness.Run(scenario, sessionOpts...)
	if err != nil {
		return out.Fail(ExitCommandError, CodeRun, "failed to run scenario", err)
	}

	if opts.Format == "json" {
		data := SimulateResult{
			Scenario: scenario.Name,
			Pass:     result.Pass,
			Errors:   result.Errors,
			Trace:    result.Trace,
			Final:    result.Final,
		}
		var cliErr *CLIError
		if !result.Pass {
			cliErr = &CLIError{Code: CodeFailed, Message: fmt.Sprintf("%d expectation(s) failed", len(result.Errors))}
		}
		if err := out.JSON(data, cliErr); err != nil {
			return err
		}
	} else {
		printSimulation(out.Writer, scenario, result)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func printSimulation(w io.Writer, scenario *harness.Scenario, result *harness.Result) {
	final := result.Final

	dedupe := "off"
	if final.Dedupe {
		dedupe = "on"
	}
	fmt.Fprintf(w, "Scenario: %s (policy %s, dedupe %s, session %s)\n", scenario.Name, final.Policy, dedupe, final.Token)

	for _, ev := range result.Trace {
		if ev.Error != "" {
			fmt.Fprintf(w, "  rejected ts=%d: %s\n", ev.Timestamp, ev.Error)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Log (most recent first):")
	if len(final.Entries) == 0 {
		fmt.Fprintln(w, "  (empty)")
	}
	for _, e := range final.Entries {
		fmt.Fprintf(w, "  #%-3d %s  %s\n", e.Index, e.Time, e.Classification)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stable: %t  Total: %d  Double fires: %d  Pending: %d  Seen: %d  Suppressed: %d\n",
		final.Stable, final.Total, final.DoubleFires, final.Pending, final.Seen, final.Suppressed)

	if result.Pass {
		fmt.Fprintln(w, "✓ PASS")
		return
	}
	fmt.Fprintln(w, "✗ FAIL")
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
