// Package replay classifies UI events around a framework's hydration
// hand-off to expose event-replay double firing.
//
// Every event falls into exactly one Classification:
//
//   - normal: an honest click handled by the live application.
//   - queued-original: a real click that arrived while the application was
//     unstable; the framework will replay it later.
//   - good-replay: a click that predates the hand-off and is replayed once,
//     as expected.
//   - bad-replay: a click dispatched a second time. This is the bug.
//
// # Strategies
//
// Two heuristics are supported and deliberately kept apart:
//
// CountingStrategy (Policy "counting") has no event identity. It counts
// clicks that arrive while unstable and treats each post-stability arrival as
// draining one of them:
//
//	unstable              -> pending++            queued-original
//	stable, pending > 0   -> pending--            bad-replay
//	stable, pending == 0  ->                      normal
//
// IdentityStrategy (Policy "identity") correlates by event timestamp and a
// hand-off time:
//
//	timestamp already seen       -> bad-replay
//	timestamp < hand-off         -> good-replay
//	otherwise                    -> normal (recorded while unstable)
//
// The Classifier wraps a strategy with the shared bookkeeping: validation,
// the total and double-fire counters, the display clock and the event log.
//
// # Preconditions
//
// Negative or missing timestamps, and identity classification before the
// hand-off time is known, are rejected with a *ClassifyError rather than
// classified. Nothing is counted or logged for a rejected event.
package replay
