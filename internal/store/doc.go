// Package store provides SQLite-backed durable storage for classified
// sessions.
//
// The store is an append-only audit log:
//   - sessions: one row per session with its policy and hand-off time
//   - entries: one row per processed click, classified or suppressed
//
// # Ordering
//
// Entries are ordered by seq, the session's logical clock, never by wall
// time. Every read includes ORDER BY seq ASC so a stored session can be
// replayed in arrival order.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING. Re-recording a session or an entry with
// an existing (session_token, seq) is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
