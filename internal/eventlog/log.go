// Package eventlog provides the append-only, most-recent-first record of
// classified events shown to a display.
//
// Entries are immutable once appended and are never deleted. Memory grows
// with the session; sessions are short-lived so no bound is enforced.
package eventlog

import "sync"

// Log is an ordered record of entries, newest first.
//
// Append is O(1) amortized: entries are stored oldest-first internally and
// reversed when a snapshot is taken.
//
// Thread-safety: safe for concurrent use via internal RWMutex.
type Log[E any] struct {
	mu      sync.RWMutex
	entries []E
}

// New creates an empty log.
func New[E any]() *Log[E] {
	return &Log[E]{entries: make([]E, 0, 16)}
}

// Append records an entry as the most recent one.
func (l *Log[E]) Append(e E) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a snapshot, most recent first.
// The returned slice is a copy; mutating it does not affect the log.
// Returns an empty (non-nil) slice for an empty log.
func (l *Log[E]) Entries() []E {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]E, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Latest returns the most recent entry.
func (l *Log[E]) Latest() (E, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var zero E
	if len(l.entries) == 0 {
		return zero, false
	}
	return l.entries[len(l.entries)-1], true
}

// Len returns the number of entries.
func (l *Log[E]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
