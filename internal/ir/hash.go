package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvent = "replaycheck/event/v1"
	DomainTrace = "replaycheck/trace/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the identity of a dispatched event from the session it
// belongs to, its target and its timestamp.
//
// A framework replay of the same physical interaction carries the same
// timestamp and target, so it maps to the same ID; that is what lets the
// dedupe service recognise it.
func EventID(sessionToken, target string, ts time.Duration) (string, error) {
	obj := map[string]any{
		"session":      sessionToken,
		"target":       target,
		"timestamp_us": ts.Microseconds(),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainEvent, canonical), nil
}

// TraceDigest hashes a canonical trace so two runs can be compared by value.
func TraceDigest(trace any) (string, error) {
	canonical, err := MarshalCanonical(trace)
	if err != nil {
		return "", fmt.Errorf("TraceDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// MustEventID is like EventID but panics on error.
// Inputs are plain strings and an integer, so it cannot fail in practice.
func MustEventID(sessionToken, target string, ts time.Duration) string {
	id, err := EventID(sessionToken, target, ts)
	if err != nil {
		panic(err)
	}
	return id
}
