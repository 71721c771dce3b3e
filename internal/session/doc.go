// Package session runs one page lifecycle: a stability tracker, an optional
// hand-off time, a classifier and an optional dedupe service, fed by a
// single-writer event loop.
//
// Three kinds of events reach a session:
//
//	EventClick    a user interaction to classify
//	EventStable   the application reached stability
//	EventHandoff  server-to-client hand-off was observed
//
// Callers either drive a session synchronously with Process, or start Run in
// one goroutine and use Submit/Enqueue from any goroutine. All state changes
// happen under the session lock, in arrival order.
//
// Snapshots are published to watchers after every processed event. A Sink,
// when configured, receives every outcome for durable storage and an Observer
// receives per-verdict notifications for metrics.
package session
