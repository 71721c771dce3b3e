// Command replaycheck classifies events replayed across SSR hydration.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/replaycheck/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	cmd.SilenceErrors = true

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
