package harness

import "github.com/roach88/replaycheck/internal/session"

// TraceEvent records one click as the session handled it.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	At        int64  `json:"at"`
	Timestamp int64  `json:"timestamp"`
	Phase     string `json:"phase,omitempty"`
	EventID   string `json:"event_id"`

	// Verdict is the classification, "suppressed", or empty on error.
	Verdict   string `json:"verdict,omitempty"`
	Index     int    `json:"index,omitempty"`
	Time      string `json:"time,omitempty"`
	WasStable bool   `json:"was_stable"`

	// Error is the precondition error code when the click was rejected.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is false if any expectation or assertion failed.
	Pass bool `json:"pass"`

	// Trace holds one event per click, in arrival order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the session snapshot after every event and marker was applied.
	Final session.Snapshot `json:"final"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// CountVerdict returns how many trace events carry verdict v.
func (r *Result) CountVerdict(v string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Verdict == v {
			n++
		}
	}
	return n
}
