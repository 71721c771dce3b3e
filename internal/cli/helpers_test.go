package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const drainScenario = `name: drain
description: two queued clicks drained after stability
stable_at: 8000
events:
  - at: 1000
    expect: queued-original
  - at: 2000
    expect: queued-original
  - at: 8500
    timestamp: 1000
    phase: replay
    expect: bad-replay
  - at: 9000
    expect: bad-replay
  - at: 9500
    expect: normal
assertions:
  - type: counts
    stable: true
    total: 5
    double_fires: 2
    pending: 0
`

const identityScenario = `name: identity
description: hand-off splits good replays from live clicks
policy: identity
session_token: identity-session
hydrated_at: 4000
stable_at: 8000
events:
  - at: 4000
    timestamp: 1000
    phase: replay
    expect: good-replay
  - at: 5000
    expect: normal
  - at: 9000
    timestamp: 5000
    phase: replay
    expect: bad-replay
`

const failingScenario = `name: wrong
description: expects the wrong verdict
events:
  - at: 1000
    expect: normal
`

func writeScenario(t *testing.T, dir, file, content string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs a command built by the root command so persistent flags and
// hooks apply, returning stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	return executeCommand(cmd, args...)
}

func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
