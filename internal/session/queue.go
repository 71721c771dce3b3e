package session

import (
	"sync"
	"time"

	"github.com/roach88/replaycheck/internal/replay"
)

// EventType distinguishes the kinds of session input.
type EventType int

const (
	// EventClick is a user interaction to classify.
	EventClick EventType = iota + 1
	// EventStable marks the application as stable.
	EventStable
	// EventHandoff records the hand-off time.
	EventHandoff
)

// String returns the wire name of t.
func (t EventType) String() string {
	switch t {
	case EventClick:
		return "click"
	case EventStable:
		return "stable"
	case EventHandoff:
		return "handoff"
	default:
		return "unknown"
	}
}

// Event is one unit of session input.
type Event struct {
	Type EventType

	// Click is set for EventClick.
	Click replay.Event

	// HandoffAt is set for EventHandoff.
	HandoffAt time.Duration

	reply chan<- result
}

// Click wraps a replay event.
func Click(ev replay.Event) Event {
	return Event{Type: EventClick, Click: ev}
}

// Stable returns a stability event.
func Stable() Event {
	return Event{Type: EventStable}
}

// Handoff returns a hand-off event at t.
func Handoff(at time.Duration) Event {
	return Event{Type: EventHandoff, HandoffAt: at}
}

type result struct {
	out Outcome
	err error
}

// eventQueue is an unbounded FIFO with a coalescing wake-up signal.
//
// Enqueue never blocks so HTTP handlers can hand events to the Run loop
// without waiting on it.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends e. Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Clear the slot so the reply channel can be collected.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that fires when events may be available. It is
// closed once the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close was called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops further enqueues and wakes waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// drain removes and returns everything still queued.
func (q *eventQueue) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.events
	q.events = nil
	return out
}
