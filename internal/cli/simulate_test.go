package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate_Text(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "drain.yaml", drainScenario)

	out, err := execute(t, "simulate", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Scenario: drain (policy counting, dedupe off, session test-session-default)")
	assert.Contains(t, out, "#5   12:00:09  normal")
	assert.Contains(t, out, "#1   12:00:01  queued-original")
	assert.Contains(t, out, "Stable: true  Total: 5  Double fires: 2  Pending: 0")
	assert.Contains(t, out, "✓ PASS")
}

func TestSimulate_JSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "identity.yaml", identityScenario)

	out, err := execute(t, "simulate", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   SimulateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, "identity", resp.Data.Scenario)
	require.Len(t, resp.Data.Trace, 3)
	assert.Equal(t, "good-replay", resp.Data.Trace[0].Verdict)
	assert.Equal(t, 1, resp.Data.Final.DoubleFires)
	assert.Equal(t, "identity-session", resp.Data.Final.Token)
}

func TestSimulate_FailingExpectation(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "wrong.yaml", failingScenario)

	out, err := execute(t, "simulate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ FAIL")
	assert.Contains(t, out, "events[0]: expected normal, got queued-original")
}

func TestSimulate_FailingExpectationJSON(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "wrong.yaml", failingScenario)

	out, err := execute(t, "simulate", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeFailed, resp.Error.Code)
}

func TestSimulate_MissingFile(t *testing.T) {
	_, err := execute(t, "simulate", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulate_SessionOverride(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "drain.yaml", drainScenario)

	out, err := execute(t, "simulate", path, "--session", "custom")
	require.NoError(t, err)
	assert.Contains(t, out, "session custom")
}
