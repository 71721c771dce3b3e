package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/replaycheck/internal/replay"
	"github.com/roach88/replaycheck/internal/session"
	"github.com/roach88/replaycheck/internal/testutil"
)

// Harness holds the deterministic collaborators of one scenario run.
type Harness struct {
	scenario *Scenario
	session  *session.Session
	clock    *testutil.VirtualClock

	handoffDone bool
	stableDone  bool
}

// Run executes a scenario against a fresh session.
//
// Extra session options (a sink, an observer) are applied after the
// harness defaults. Logs are discarded unless an option overrides the logger.
//
// Expectation and assertion failures are reported in the Result; the error
// is reserved for scenarios that cannot run at all.
func Run(scenario *Scenario, opts ...session.Option) (*Result, error) {
	name := scenario.Policy
	if name == "" {
		name = string(replay.PolicyCounting)
	}
	policy, err := replay.ParsePolicy(name)
	if err != nil {
		return nil, err
	}

	var origin time.Time
	if scenario.ClockStart != "" {
		origin, err = time.Parse(time.RFC3339, scenario.ClockStart)
		if err != nil {
			return nil, fmt.Errorf("clock_start: %w", err)
		}
	}
	clock := testutil.NewVirtualClock(origin)

	base := []session.Option{
		session.WithTokenGenerator(testutil.NewFixedSessionToken(scenario.SessionToken)),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		session.WithNow(clock.Now),
	}
	sess, err := session.New(session.Config{Policy: policy, Dedupe: scenario.Dedupe}, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer sess.Close()

	h := &Harness{
		scenario: scenario,
		session:  sess,
		clock:    clock,
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Events {
		if err := h.applyMarkers(ctx, step.At); err != nil {
			return nil, err
		}
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, err
		}
	}

	// Markers after the last click still shape the final state.
	if err := h.applyMarkers(ctx, -1); err != nil {
		return nil, err
	}

	result.Final = sess.Snapshot()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// applyMarkers applies the hand-off and stability markers due at or before
// limit, earliest first, hand-off first on ties. A negative limit applies
// all remaining markers.
func (h *Harness) applyMarkers(ctx context.Context, limit int64) error {
	for {
		handoffDue := !h.handoffDone && h.scenario.HydratedAt != nil &&
			(limit < 0 || *h.scenario.HydratedAt <= limit)
		stableDue := !h.stableDone && h.scenario.StableAt != nil &&
			(limit < 0 || *h.scenario.StableAt <= limit)

		switch {
		case handoffDue && (!stableDue || *h.scenario.HydratedAt <= *h.scenario.StableAt):
			at := *h.scenario.HydratedAt
			h.clock.Set(msToDuration(at))
			if _, err := h.session.Process(ctx, session.Handoff(msToDuration(at))); err != nil {
				return fmt.Errorf("hand-off at %d: %w", at, err)
			}
			h.handoffDone = true

		case stableDue:
			h.clock.Set(msToDuration(*h.scenario.StableAt))
			if _, err := h.session.Process(ctx, session.Stable()); err != nil {
				return fmt.Errorf("stability at %d: %w", *h.scenario.StableAt, err)
			}
			h.stableDone = true

		default:
			return nil
		}
	}
}

func (h *Harness) executeStep(ctx context.Context, i int, step EventStep, result *Result) error {
	h.clock.Set(msToDuration(step.At))

	phase, err := replay.ParsePhase(step.Phase)
	if err != nil {
		return fmt.Errorf("events[%d]: %w", i, err)
	}

	ts := step.EventTimestamp()
	ev := replay.Event{
		Timestamp: msToDuration(ts),
		Phase:     phase,
		ID:        step.ID,
		Target:    step.Target,
	}

	trace := TraceEvent{
		At:        step.At,
		Timestamp: ts,
		Phase:     step.Phase,
		EventID:   step.ID,
	}

	out, err := h.session.Process(ctx, session.Click(ev))
	if err != nil {
		code := replay.ErrorCode(err)
		if code == "" {
			return fmt.Errorf("events[%d]: %w", i, err)
		}

		trace.Error = string(code)
		trace.WasStable = h.session.Stability().IsStable()
		result.Trace = append(result.Trace, trace)

		switch step.ExpectError {
		case "":
			result.AddError(fmt.Sprintf("events[%d]: unexpected error %s", i, code))
		case string(code):
		default:
			result.AddError(fmt.Sprintf("events[%d]: expected error %s, got %s", i, step.ExpectError, code))
		}
		return nil
	}

	trace.Seq = out.Seq
	trace.EventID = out.Event.ID
	trace.WasStable = out.WasStable
	if out.Suppressed {
		trace.Verdict = VerdictSuppressed
	} else {
		trace.Verdict = string(out.Entry.Classification)
		trace.Index = out.Entry.Index
		trace.Time = out.Entry.Time
	}
	result.Trace = append(result.Trace, trace)

	if step.ExpectError != "" {
		result.AddError(fmt.Sprintf("events[%d]: expected error %s, got verdict %s", i, step.ExpectError, trace.Verdict))
	}
	if step.Expect != "" && step.Expect != trace.Verdict {
		result.AddError(fmt.Sprintf("events[%d]: expected %s, got %s", i, step.Expect, trace.Verdict))
	}

	return nil
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
