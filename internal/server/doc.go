// Package server exposes live classification sessions over HTTP.
//
// Each session runs its own event loop and becomes stable after a
// configurable delay, so clicks posted early are classified as queued
// originals and clicks posted after the delay exercise the replay policies.
// Snapshots are streamed over WebSocket and verdicts are exported as
// Prometheus metrics.
//
// Routes:
//
//	POST   /api/sessions
//	GET    /api/sessions
//	GET    /api/sessions/:token
//	DELETE /api/sessions/:token
//	POST   /api/sessions/:token/events
//	POST   /api/sessions/:token/handoff
//	POST   /api/sessions/:token/stable
//	GET    /api/sessions/:token/stream
//	GET    /metrics
//	GET    /healthz
package server
