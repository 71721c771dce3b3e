package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalYAML = `name: minimal
description: one click
events:
  - at: 0
`

func TestLoadScenario_YAMLDefaults(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, "s.yaml", minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "counting", s.Policy)
	assert.False(t, s.Dedupe)
	assert.Nil(t, s.StableAt)
	require.Len(t, s.Events, 1)
	assert.Equal(t, int64(0), s.Events[0].EventTimestamp())
}

func TestLoadScenario_FullYAML(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "dedupe_suppresses_replay.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "identity", s.Policy)
	assert.True(t, s.Dedupe)
	assert.Equal(t, "dedupe-session", s.SessionToken)
	require.NotNil(t, s.HydratedAt)
	assert.Equal(t, int64(4000), *s.HydratedAt)
	assert.Equal(t, int64(5000), s.Events[1].EventTimestamp())
	assert.Equal(t, "replay", s.Events[1].Phase)
	assert.Equal(t, VerdictSuppressed, s.Events[1].Expect)
}

func TestLoadScenario_CUE(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "identity_resubmission.cue"))
	require.NoError(t, err)

	assert.Equal(t, "identity_resubmission", s.Name)
	assert.Equal(t, "identity", s.Policy)
	assert.Equal(t, "cue-session", s.SessionToken)
	require.Len(t, s.Events, 3)
	require.NotNil(t, s.Events[1].Timestamp)
	assert.Equal(t, int64(3000), *s.Events[1].Timestamp)
	require.Len(t, s.Assertions, 2)
	require.NotNil(t, s.Assertions[0].Stable)
	assert.False(t, *s.Assertions[0].Stable)
}

func TestLoadScenario_CUEDefaultsPolicy(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, "s.cue", `
name: "cue_minimal"
description: "defaults"
events: [{at: 0}]
`))
	require.NoError(t, err)
	assert.Equal(t, "counting", s.Policy)
}

const cueHeader = "name: \"x\"\ndescription: \"d\"\n"

func TestLoadScenario_CUERejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", cueHeader + "events: [{at: 0}]\ncolour: \"red\"\n"},
		{"bad policy", cueHeader + "policy: \"both\"\nevents: [{at: 0}]\n"},
		{"negative at", cueHeader + "events: [{at: -1}]\n"},
		{"no events", cueHeader + "events: []\n"},
		{"bad verdict", cueHeader + "events: [{at: 0, expect: \"fine\"}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, "s.cue", tt.content))
			require.Error(t, err)
			var le *LoadError
			assert.ErrorAs(t, err, &le)
		})
	}
}

func TestLoadScenario_YAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", minimalYAML + "colour: red\n", "failed to parse YAML"},
		{"missing name", "description: d\nevents:\n  - at: 0\n", "name is required"},
		{"missing description", "name: x\nevents:\n  - at: 0\n", "description is required"},
		{"no events", "name: x\ndescription: d\nevents: []\n", "events list is required"},
		{"bad policy", "name: x\ndescription: d\npolicy: both\nevents:\n  - at: 0\n", "UNKNOWN_POLICY"},
		{"bad phase", "name: x\ndescription: d\nevents:\n  - at: 0\n    phase: later\n", "UNKNOWN_PHASE"},
		{"out of order", "name: x\ndescription: d\nevents:\n  - at: 5\n  - at: 4\n", "before the previous event"},
		{"bad verdict", "name: x\ndescription: d\nevents:\n  - at: 0\n    expect: fine\n", "unknown expected verdict"},
		{"bad error code", "name: x\ndescription: d\nevents:\n  - at: 0\n    expect_error: OOPS\n", "unknown expected error"},
		{"both expectations", "name: x\ndescription: d\nevents:\n  - at: 0\n    expect: normal\n    expect_error: HANDOFF_UNSET\n", "mutually exclusive"},
		{"bad clock", "name: x\ndescription: d\nclock_start: noon\nevents:\n  - at: 0\n", "clock_start"},
		{"empty counts", "name: x\ndescription: d\nevents:\n  - at: 0\nassertions:\n  - type: counts\n", "at least one expected value"},
		{"count missing", "name: x\ndescription: d\nevents:\n  - at: 0\nassertions:\n  - type: classification_count\n    classification: normal\n", "count is required"},
		{"unknown assertion", "name: x\ndescription: d\nevents:\n  - at: 0\nassertions:\n  - type: trace_order\n", "unknown assertion type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, "s.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestIsScenarioFile(t *testing.T) {
	assert.True(t, IsScenarioFile("a.yaml"))
	assert.True(t, IsScenarioFile("a.yml"))
	assert.True(t, IsScenarioFile("a.cue"))
	assert.False(t, IsScenarioFile("a.golden"))
}
