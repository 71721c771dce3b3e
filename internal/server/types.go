package server

import (
	"github.com/roach88/replaycheck/internal/session"
)

// CreateSessionRequest is the body of POST /api/sessions. Every field is
// optional and falls back to the server configuration.
type CreateSessionRequest struct {
	Policy           string `json:"policy"`
	Dedupe           *bool  `json:"dedupe"`
	StabilityDelayMs *int64 `json:"stability_delay_ms"`
}

// EventRequest is the body of POST /api/sessions/:token/events.
type EventRequest struct {
	TimestampMs *int64 `json:"timestamp_ms"`
	Phase       string `json:"phase"`
	ID          string `json:"id"`
	Target      string `json:"target"`
}

// HandoffRequest is the body of POST /api/sessions/:token/handoff.
type HandoffRequest struct {
	TimestampMs *int64 `json:"timestamp_ms"`
}

// EventResponse reports the verdict for one posted click.
type EventResponse struct {
	Seq            int64            `json:"seq"`
	EventID        string           `json:"event_id"`
	Classification string           `json:"classification,omitempty"`
	Suppressed     bool             `json:"suppressed"`
	WasStable      bool             `json:"was_stable"`
	Index          int              `json:"index,omitempty"`
	Time           string           `json:"time,omitempty"`
	Session        session.Snapshot `json:"session"`
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

// SessionList is the body of GET /api/sessions, least recently used first.
type SessionList struct {
	Sessions []session.Snapshot `json:"sessions"`
}
