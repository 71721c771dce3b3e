// Package stability models the hosting framework's "application is stable"
// signal.
//
// The framework considers an application stable once no asynchronous work is
// pending. Event replay is triggered by that transition, so every classifier
// in this repository needs a way to ask "is the application stable right now?"
// without caching the answer between events.
//
// Three small primitives live here:
//
//   - Tracker: a one-shot latch. false until OnStabilityReached, then true
//     forever. Classifiers receive it through the narrow Reader interface.
//   - Gate: a pending-task registry. The tracker flips once the last
//     registered task is released.
//   - Handoff: a one-shot latch holding the moment live event handling took
//     over from the server-rendered snapshot.
//
// Subscriptions to the tracker are scoped: Subscribe returns a handle whose
// Unsubscribe must be called when the owner is torn down. A notification that
// never fires does not leak the waiting goroutine once the handle is released.
package stability
