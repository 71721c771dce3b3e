package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			outcome := ev.Verdict
			if ev.Error != "" {
				outcome = "error " + ev.Error
			}
			fmt.Fprintf(&buf, "  [%d] at=%d ts=%d %s\n", i+1, ev.At, ev.Timestamp, outcome)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns one message per
// failure. All assertions are evaluated; it does not stop at the first.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCounts:
		return assertCounts(result, a)
	case AssertClassificationCount:
		return assertClassificationCount(result, a)
	case AssertLogOrder:
		return assertLogOrder(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertCounts(result *Result, a Assertion) error {
	final := result.Final

	var mismatches []string
	check := func(name string, want *int, got int) {
		if want != nil && *want != got {
			mismatches = append(mismatches, fmt.Sprintf("%s=%d (want %d)", name, got, *want))
		}
	}
	if a.Stable != nil && *a.Stable != final.Stable {
		mismatches = append(mismatches, fmt.Sprintf("stable=%t (want %t)", final.Stable, *a.Stable))
	}
	check("total", a.Total, final.Total)
	check("double_fires", a.DoubleFires, final.DoubleFires)
	check("pending", a.Pending, final.Pending)
	check("seen", a.Seen, final.Seen)
	check("suppressed", a.Suppressed, final.Suppressed)

	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertCounts,
		Expected: "final counters to match",
		Actual:   strings.Join(mismatches, ", "),
		Trace:    result.Trace,
	}
}

func assertClassificationCount(result *Result, a Assertion) error {
	got := result.CountVerdict(a.Classification)
	if got == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertClassificationCount,
		Expected: fmt.Sprintf("%d x %s", *a.Count, a.Classification),
		Actual:   fmt.Sprintf("%d x %s", got, a.Classification),
		Trace:    result.Trace,
	}
}

func assertLogOrder(result *Result, a Assertion) error {
	got := make([]string, len(result.Final.Entries))
	for i, e := range result.Final.Entries {
		got[i] = string(e.Classification)
	}

	if strings.Join(got, ",") == strings.Join(a.Classifications, ",") {
		return nil
	}
	return &AssertionError{
		Type:     AssertLogOrder,
		Expected: "[" + strings.Join(a.Classifications, ", ") + "]",
		Actual:   "[" + strings.Join(got, ", ") + "]",
		Trace:    result.Trace,
	}
}
