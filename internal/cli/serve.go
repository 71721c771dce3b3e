package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/replaycheck/internal/config"
	"github.com/roach88/replaycheck/internal/server"
	"github.com/roach88/replaycheck/internal/store"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live classification sessions over HTTP",
		Long: `Start the HTTP service. Each session created through the API runs its
own event loop and becomes stable after the configured delay.

Settings come from flags, then REPLAYCHECK_* environment variables, then
the --config file, then defaults.

Examples:
  replaycheck serve
  replaycheck serve --addr :9090 --policy identity --stability-delay 5s
  REPLAYCHECK_DATABASE=./replaycheck.db replaycheck serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}

	cmd.Flags().String("addr", config.DefaultAddr, "listen address")
	cmd.Flags().String("policy", "counting", "default classification policy (counting|identity)")
	cmd.Flags().Bool("dedupe", false, "enable the dedupe service by default")
	cmd.Flags().Duration("stability-delay", config.DefaultStabilityDelay, "delay before a new session becomes stable")
	cmd.Flags().Int("max-sessions", config.DefaultMaxSessions, "maximum live sessions; the least recently used is closed")
	cmd.Flags().String("database", "", "record sessions in this SQLite database")
	cmd.Flags().String("log-format", config.DefaultLogFormat, "log format (text|json)")

	return cmd
}

func runServe(rootOpts *RootOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{File: rootOpts.ConfigFile, Flags: cmd.Flags()})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if rootOpts.Verbose {
		cfg.LogLevel = "debug"
	}

	logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}

	var st *store.Store
	if cfg.Database != "" {
		st, err = store.Open(cfg.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	srv, err := server.New(server.Options{
		Config: cfg,
		Store:  st,
		Logger: logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create server", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting replaycheck",
		"addr", cfg.Addr,
		"policy", cfg.Policy,
		"dedupe", cfg.Dedupe,
		"stability_delay", cfg.StabilityDelay,
		"max_sessions", cfg.MaxSessions,
		"database", cfg.Database,
	)

	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
		return WrapExitError(ExitCommandError, "server failed", err)
	}
	return nil
}
