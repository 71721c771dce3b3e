// Package ir holds the canonical serialization and content-addressed
// identities shared by the session, harness and store packages.
//
// ir imports nothing internal, so every other package may depend on it.
//
// Key design constraints:
//   - No floats in canonical JSON; times are integer microseconds or
//     milliseconds
//   - All JSON keys use snake_case
//   - Identities are SHA-256 over canonical JSON with a domain prefix
package ir
