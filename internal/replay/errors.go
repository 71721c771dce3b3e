package replay

import (
	"errors"
	"fmt"
	"time"
)

// ClassifyError is a precondition failure detected before classification.
//
// A rejected event is never counted or logged; the caller decides whether to
// drop it or surface it.
type ClassifyError struct {
	// Code identifies the error category.
	Code ClassifyErrorCode

	// Message is a human-readable description.
	Message string

	// EventID identifies the rejected event when known.
	EventID string

	// Details contains additional context.
	Details map[string]string
}

// ClassifyErrorCode categorizes precondition failures.
type ClassifyErrorCode string

const (
	// ErrCodeNegativeTimestamp indicates an event timestamp below zero.
	ErrCodeNegativeTimestamp ClassifyErrorCode = "NEGATIVE_TIMESTAMP"

	// ErrCodeMissingTimestamp indicates an event arrived without a timestamp.
	ErrCodeMissingTimestamp ClassifyErrorCode = "MISSING_TIMESTAMP"

	// ErrCodeHandoffUnset indicates identity classification before the
	// hand-off time was recorded.
	ErrCodeHandoffUnset ClassifyErrorCode = "HANDOFF_UNSET"

	// ErrCodeUnknownPolicy indicates an unsupported policy name.
	ErrCodeUnknownPolicy ClassifyErrorCode = "UNKNOWN_POLICY"

	// ErrCodeUnknownPhase indicates an unsupported phase name.
	ErrCodeUnknownPhase ClassifyErrorCode = "UNKNOWN_PHASE"
)

// Error implements the error interface.
func (e *ClassifyError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("%s: %s (event=%s)", e.Code, e.Message, e.EventID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithEventID returns a copy of the error tagged with the event identity.
func (e *ClassifyError) WithEventID(id string) *ClassifyError {
	cp := *e
	cp.EventID = id
	return &cp
}

// IsPreconditionError returns true if err is (or wraps) a ClassifyError.
func IsPreconditionError(err error) bool {
	var ce *ClassifyError
	return errors.As(err, &ce)
}

// ErrorCode extracts the ClassifyErrorCode from err, or "" if err is not a
// ClassifyError.
func ErrorCode(err error) ClassifyErrorCode {
	var ce *ClassifyError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsHandoffUnset returns true if err reports a missing hand-off time.
func IsHandoffUnset(err error) bool {
	return ErrorCode(err) == ErrCodeHandoffUnset
}

// NewNegativeTimestampError creates a ClassifyError for a negative timestamp.
func NewNegativeTimestampError(ts time.Duration) *ClassifyError {
	return &ClassifyError{
		Code:    ErrCodeNegativeTimestamp,
		Message: fmt.Sprintf("event timestamp must not be negative (got %s)", ts),
		Details: map[string]string{
			"timestamp": ts.String(),
		},
	}
}

// NewMissingTimestampError creates a ClassifyError for an event without a
// timestamp.
func NewMissingTimestampError() *ClassifyError {
	return &ClassifyError{
		Code:    ErrCodeMissingTimestamp,
		Message: "event timestamp is required",
	}
}

// NewHandoffUnsetError creates a ClassifyError for identity classification
// before the hand-off time is known.
func NewHandoffUnsetError() *ClassifyError {
	return &ClassifyError{
		Code:    ErrCodeHandoffUnset,
		Message: "hand-off time must be recorded before identity classification",
	}
}

// NewUnknownPolicyError creates a ClassifyError for an unsupported policy.
func NewUnknownPolicyError(name string) *ClassifyError {
	return &ClassifyError{
		Code:    ErrCodeUnknownPolicy,
		Message: fmt.Sprintf("unknown policy %q (want one of %v)", name, Policies),
	}
}

// NewUnknownPhaseError creates a ClassifyError for an unsupported phase.
func NewUnknownPhaseError(name string) *ClassifyError {
	return &ClassifyError{
		Code:    ErrCodeUnknownPhase,
		Message: fmt.Sprintf("unknown phase %q (want original or replay)", name),
	}
}
