package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/replaycheck/internal/ir"
)

// TraceSnapshot is the golden-file view of a scenario run.
//
// Event IDs are left out: derived IDs are hashes, covered by the ir tests,
// and would make golden diffs unreadable.
type TraceSnapshot struct {
	ScenarioName string
	Result       *Result
}

func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Result.Trace))
	for i, ev := range s.Result.Trace {
		m := map[string]any{
			"seq":        ev.Seq,
			"at":         ev.At,
			"timestamp":  ev.Timestamp,
			"was_stable": ev.WasStable,
		}
		if ev.Phase != "" {
			m["phase"] = ev.Phase
		}
		if ev.Verdict != "" {
			m["verdict"] = ev.Verdict
		}
		if ev.Index != 0 {
			m["index"] = ev.Index
		}
		if ev.Time != "" {
			m["time"] = ev.Time
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		trace[i] = m
	}

	final := s.Result.Final
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"session_token": final.Token,
		"policy":        string(final.Policy),
		"dedupe":        final.Dedupe,
		"trace":         trace,
		"final": map[string]any{
			"stable":       final.Stable,
			"total":        final.Total,
			"double_fires": final.DoubleFires,
			"pending":      final.Pending,
			"seen":         final.Seen,
			"suppressed":   final.Suppressed,
		},
	}
}

// CanonicalTrace renders a run as canonical JSON, the golden file format.
func CanonicalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: scenarioName, Result: result}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// TraceDigest returns the content hash of a run's canonical trace.
func TraceDigest(scenarioName string, result *Result) (string, error) {
	snapshot := TraceSnapshot{ScenarioName: scenarioName, Result: result}
	return ir.TraceDigest(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := CanonicalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
