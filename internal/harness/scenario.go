package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/replaycheck/internal/replay"
)

//go:embed schema.cue
var schemaSource string

// VerdictSuppressed is the expected verdict of a click swallowed by the
// dedupe service. It is not a classification.
const VerdictSuppressed = "suppressed"

// Scenario describes one page lifecycle to replay through a session.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description" json:"description"`

	// Policy selects the classification policy. Default: counting.
	Policy string `yaml:"policy,omitempty" json:"policy,omitempty"`

	// Dedupe enables the dedupe service in front of the classifier.
	Dedupe bool `yaml:"dedupe,omitempty" json:"dedupe,omitempty"`

	// SessionToken fixes the session token. Default: "test-session-default".
	SessionToken string `yaml:"session_token,omitempty" json:"session_token,omitempty"`

	// ClockStart is the RFC 3339 wall time at virtual offset zero.
	ClockStart string `yaml:"clock_start,omitempty" json:"clock_start,omitempty"`

	// HydratedAt is the hand-off time in milliseconds. Nil means never.
	HydratedAt *int64 `yaml:"hydrated_at,omitempty" json:"hydrated_at,omitempty"`

	// StableAt is when stability is reported, in milliseconds. Nil means never.
	StableAt *int64 `yaml:"stable_at,omitempty" json:"stable_at,omitempty"`

	Events     []EventStep `yaml:"events" json:"events"`
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// EventStep is one click arriving at the session.
type EventStep struct {
	// At is the arrival time on the virtual clock, in milliseconds.
	At int64 `yaml:"at" json:"at"`

	// Timestamp is the event's own timestamp in milliseconds. Defaults to At.
	// A replayed event carries the timestamp of its original.
	Timestamp *int64 `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`

	Phase  string `yaml:"phase,omitempty" json:"phase,omitempty"`
	ID     string `yaml:"id,omitempty" json:"id,omitempty"`
	Target string `yaml:"target,omitempty" json:"target,omitempty"`

	// Expect is the expected classification, or "suppressed".
	Expect string `yaml:"expect,omitempty" json:"expect,omitempty"`

	// ExpectError is the expected precondition error code.
	ExpectError string `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
}

// EventTimestamp returns the step's timestamp, defaulting to its arrival.
func (s EventStep) EventTimestamp() int64 {
	if s.Timestamp != nil {
		return *s.Timestamp
	}
	return s.At
}

// Assertion checks the state of a session after a scenario ran.
type Assertion struct {
	// Type is one of counts, classification_count, log_order.
	Type string `yaml:"type" json:"type"`

	// counts: every field that is set must match the final snapshot.
	Stable      *bool `yaml:"stable,omitempty" json:"stable,omitempty"`
	Total       *int  `yaml:"total,omitempty" json:"total,omitempty"`
	DoubleFires *int  `yaml:"double_fires,omitempty" json:"double_fires,omitempty"`
	Pending     *int  `yaml:"pending,omitempty" json:"pending,omitempty"`
	Seen        *int  `yaml:"seen,omitempty" json:"seen,omitempty"`
	Suppressed  *int  `yaml:"suppressed,omitempty" json:"suppressed,omitempty"`

	// classification_count: number of trace verdicts equal to Classification.
	Classification string `yaml:"classification,omitempty" json:"classification,omitempty"`
	Count          *int   `yaml:"count,omitempty" json:"count,omitempty"`

	// log_order: the display log, most recent first.
	Classifications []string `yaml:"classifications,omitempty" json:"classifications,omitempty"`
}

// Assertion type constants.
const (
	AssertCounts              = "counts"
	AssertClassificationCount = "classification_count"
	AssertLogOrder            = "log_order"
)

// LoadError is a scenario load failure with an optional source position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadScenario reads a scenario file. Files ending in .cue are checked
// against the #Scenario schema; anything else is parsed as YAML with
// unknown fields rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	if filepath.Ext(path) == ".cue" {
		scenario, err = parseCUE(path, data)
	} else {
		scenario, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// IsScenarioFile reports whether path has a scenario extension.
func IsScenarioFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

func parseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var scenario Scenario
	if err := unified.Decode(&scenario); err != nil {
		return nil, formatCUEError(err)
	}
	return &scenario, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &LoadError{Field: "cue", Message: first.Error()}
}

var knownErrorCodes = map[string]bool{
	string(replay.ErrCodeNegativeTimestamp): true,
	string(replay.ErrCodeMissingTimestamp):  true,
	string(replay.ErrCodeHandoffUnset):      true,
}

func validVerdict(v string) bool {
	return v == VerdictSuppressed || replay.Classification(v).Valid()
}

// validateScenario checks required fields and cross-field rules that the
// YAML decoder cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Policy == "" {
		s.Policy = string(replay.PolicyCounting)
	}
	if _, err := replay.ParsePolicy(s.Policy); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	if s.ClockStart != "" {
		if _, err := time.Parse(time.RFC3339, s.ClockStart); err != nil {
			return fmt.Errorf("clock_start: %w", err)
		}
	}
	if s.HydratedAt != nil && *s.HydratedAt < 0 {
		return fmt.Errorf("hydrated_at must be non-negative")
	}
	if s.StableAt != nil && *s.StableAt < 0 {
		return fmt.Errorf("stable_at must be non-negative")
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	var last int64
	for i, step := range s.Events {
		if step.At < 0 {
			return fmt.Errorf("events[%d]: at must be non-negative", i)
		}
		if step.At < last {
			return fmt.Errorf("events[%d]: at %d is before the previous event (%d)", i, step.At, last)
		}
		last = step.At

		if _, err := replay.ParsePhase(step.Phase); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
		if step.Expect != "" && !validVerdict(step.Expect) {
			return fmt.Errorf("events[%d]: unknown expected verdict %q", i, step.Expect)
		}
		if step.ExpectError != "" && !knownErrorCodes[step.ExpectError] {
			return fmt.Errorf("events[%d]: unknown expected error %q", i, step.ExpectError)
		}
		if step.Expect != "" && step.ExpectError != "" {
			return fmt.Errorf("events[%d]: expect and expect_error are mutually exclusive", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCounts:
		if a.Stable == nil && a.Total == nil && a.DoubleFires == nil &&
			a.Pending == nil && a.Seen == nil && a.Suppressed == nil {
			return fmt.Errorf("assertions[%d]: counts needs at least one expected value", index)
		}
	case AssertClassificationCount:
		if !validVerdict(a.Classification) {
			return fmt.Errorf("assertions[%d]: unknown classification %q", index, a.Classification)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for classification_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertLogOrder:
		for j, c := range a.Classifications {
			if !replay.Classification(c).Valid() {
				return fmt.Errorf("assertions[%d]: classifications[%d]: unknown classification %q", index, j, c)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
