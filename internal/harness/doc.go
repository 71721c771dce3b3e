// Package harness runs scenario files against a real session and compares the
// resulting trace with golden files.
//
// A scenario describes one page lifecycle on a virtual clock: when hand-off
// happens, when the application becomes stable, and the clicks that arrive
// along the way. Each click may state the verdict it expects. After the run,
// assertions check the final counters and the display log.
//
// Scenarios are YAML (unknown fields rejected) or CUE. CUE files are unified
// with the embedded #Scenario schema before decoding, so constraint errors
// carry file positions.
//
// Determinism comes from:
//   - a fixed session token (testutil.FixedSessionToken)
//   - a virtual wall clock for display times (testutil.VirtualClock)
//   - the session sequence clock for ordering
//
// Markers scheduled at the same instant as a click are applied before it,
// hand-off first, then stability.
package harness
