package replay

import (
	"encoding/json"
	"fmt"
	"time"
)

// Phase tags whether the dispatch layer considers an event an original
// dispatch or a framework replay.
type Phase int

const (
	// PhaseUnspecified means the dispatch layer did not say.
	PhaseUnspecified Phase = iota
	// PhaseOriginal is a first dispatch of a physical interaction.
	PhaseOriginal
	// PhaseReplay is a framework-initiated re-dispatch.
	PhaseReplay
)

// String returns the wire name of the phase ("" for unspecified).
func (p Phase) String() string {
	switch p {
	case PhaseOriginal:
		return "original"
	case PhaseReplay:
		return "replay"
	default:
		return ""
	}
}

// ParsePhase converts a wire name to a Phase. The empty string maps to
// PhaseUnspecified.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "":
		return PhaseUnspecified, nil
	case "original":
		return PhaseOriginal, nil
	case "replay":
		return PhaseReplay, nil
	default:
		return PhaseUnspecified, NewUnknownPhaseError(s)
	}
}

// MarshalJSON encodes the phase by name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a phase name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("phase: %w", err)
	}
	parsed, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Event is one user-originated interaction as seen by the application.
type Event struct {
	// Timestamp is the event time relative to the page time origin. It
	// identifies the physical interaction and is shared by its replays.
	Timestamp time.Duration `json:"timestamp"`

	// Phase is supplied by the dispatch layer when known.
	Phase Phase `json:"phase,omitempty"`

	// ID identifies the dispatched event for presence-only dedupe.
	// Sessions derive one from the timestamp when it is empty.
	ID string `json:"id,omitempty"`

	// Target names the element that received the event (optional).
	Target string `json:"target,omitempty"`
}

// Validate checks the event's preconditions.
func (e Event) Validate() error {
	if e.Timestamp < 0 {
		return NewNegativeTimestampError(e.Timestamp)
	}
	return nil
}

// Classification is the verdict for one event.
type Classification string

const (
	Normal         Classification = "normal"
	QueuedOriginal Classification = "queued-original"
	GoodReplay     Classification = "good-replay"
	BadReplay      Classification = "bad-replay"
)

// Classifications lists every verdict in a stable order.
var Classifications = []Classification{Normal, QueuedOriginal, GoodReplay, BadReplay}

// Valid reports whether c is one of the four verdicts.
func (c Classification) Valid() bool {
	switch c {
	case Normal, QueuedOriginal, GoodReplay, BadReplay:
		return true
	}
	return false
}

// IsDoubleFire reports whether the verdict counts as a double fire.
func (c Classification) IsDoubleFire() bool {
	return c == BadReplay
}

// Entry is one row of the classified log. Immutable once created.
type Entry struct {
	// Index is the 1-based position of the event among all classified events.
	Index int `json:"index"`

	// Time is the wall-clock display time, formatted HH:MM:SS (24h).
	Time string `json:"time"`

	Classification Classification `json:"classification"`

	// WasStable is the stability state observed when the event arrived.
	WasStable bool `json:"was_stable"`
}

// DisplayTimeLayout is the 24-hour HH:MM:SS layout used for Entry.Time.
const DisplayTimeLayout = "15:04:05"

// Policy names a classification strategy.
type Policy string

const (
	// PolicyCounting selects CountingStrategy (queue/drain).
	PolicyCounting Policy = "counting"
	// PolicyIdentity selects IdentityStrategy (timestamp identity).
	PolicyIdentity Policy = "identity"
)

// Policies lists the supported policies.
var Policies = []Policy{PolicyCounting, PolicyIdentity}

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyCounting, PolicyIdentity:
		return Policy(s), nil
	default:
		return "", NewUnknownPolicyError(s)
	}
}
