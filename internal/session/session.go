package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/replaycheck/internal/dedupe"
	"github.com/roach88/replaycheck/internal/ir"
	"github.com/roach88/replaycheck/internal/replay"
	"github.com/roach88/replaycheck/internal/stability"
)

// ErrClosed is returned when input reaches a closed session.
var ErrClosed = errors.New("session closed")

// Config selects the classification behaviour of a session.
type Config struct {
	Policy replay.Policy
	Dedupe bool
}

// Info identifies a session to a Sink.
type Info struct {
	Token  string
	Policy replay.Policy
	Dedupe bool
}

// Outcome is the result of processing one event.
type Outcome struct {
	Seq  int64
	Type EventType

	// Event is the click as classified, with its ID filled in.
	Event replay.Event

	// Entry is set when the click was classified.
	Entry *replay.Entry

	// Suppressed is true when the dedupe service swallowed the click.
	Suppressed bool

	// WasStable is the stability flag observed while processing.
	WasStable bool
}

// Sink persists session activity.
type Sink interface {
	RecordSession(ctx context.Context, info Info) error
	RecordHandoff(ctx context.Context, token string, at time.Duration, seq int64) error
	RecordOutcome(ctx context.Context, token string, out Outcome) error
}

// Observer is notified of verdicts, typically to update metrics.
type Observer interface {
	ObserveClassification(policy replay.Policy, c replay.Classification)
	ObserveSuppressed(policy replay.Policy)
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	Token       string         `json:"token"`
	Policy      replay.Policy  `json:"policy"`
	Dedupe      bool           `json:"dedupe"`
	Stable      bool           `json:"stable"`
	HandoffSet  bool           `json:"handoff_set"`
	HandoffMs   int64          `json:"handoff_ms"`
	Seq         int64          `json:"seq"`
	Total       int            `json:"total"`
	DoubleFires int            `json:"double_fires"`
	Pending     int            `json:"pending"`
	Seen        int            `json:"seen"`
	Suppressed  int            `json:"suppressed"`
	Entries     []replay.Entry `json:"entries"`
}

// Session owns the classification state of one page lifecycle.
//
// Thread-safety model:
//   - Process, Enqueue, Submit, Snapshot, Watch, Close: any goroutine
//   - Run: exactly one goroutine
type Session struct {
	token string
	cfg   Config

	clock      *Clock
	queue      *eventQueue
	tracker    *stability.Tracker
	gate       *stability.Gate
	handoff    *stability.Handoff
	classifier *replay.Classifier
	dedupe     *dedupe.Service

	sink     Sink
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
	tokens   TokenGenerator

	mu         sync.Mutex
	suppressed int
	sinkOpened bool
	watchers   map[int]chan Snapshot
	nextWatch  int

	sub       *stability.Subscription
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithTokenGenerator sets the token source.
// Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(s *Session) {
		s.tokens = g
	}
}

// WithSink records every outcome to sink.
func WithSink(sink Sink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithObserver reports verdicts to o.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observer = o
	}
}

// WithLogger sets the logger.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithNow sets the wall clock used for log display times.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithClock resumes sequence numbering from an existing clock.
func WithClock(c *Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// New builds a session for cfg.
//
// Returns an UNKNOWN_POLICY error if cfg.Policy is not recognised.
func New(cfg Config, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:      cfg,
		queue:    newEventQueue(),
		tracker:  stability.NewTracker(),
		handoff:  stability.NewHandoff(),
		logger:   slog.Default(),
		now:      time.Now,
		tokens:   UUIDv7Generator{},
		watchers: make(map[int]chan Snapshot),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = NewClock()
	}

	strategy, err := replay.NewStrategy(cfg.Policy, s.handoff)
	if err != nil {
		return nil, err
	}

	s.token = s.tokens.Generate()
	s.logger = s.logger.With("session", s.token)
	s.gate = stability.NewGate(s.tracker)
	s.classifier = replay.NewClassifier(strategy, s.tracker, replay.WithNow(s.now))
	if cfg.Dedupe {
		s.dedupe = dedupe.New(s.tracker)
	}

	s.sub = s.tracker.Subscribe(context.Background(), s.onStable)

	return s, nil
}

func (s *Session) onStable() {
	s.logger.Info("application stable")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked()
}

// Token returns the session token.
func (s *Session) Token() string {
	return s.token
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Gate returns the pending-task gate that drives stability.
func (s *Session) Gate() *stability.Gate {
	return s.gate
}

// Stability returns the session's stability handle.
func (s *Session) Stability() stability.Reader {
	return s.tracker
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Process applies ev synchronously.
//
// Precondition failures are returned as *replay.ClassifyError and leave the
// counters untouched. A sink failure is returned alongside a valid Outcome.
func (s *Session) Process(ctx context.Context, ev Event) (Outcome, error) {
	select {
	case <-s.done:
		return Outcome{}, ErrClosed
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.processLocked(ctx, ev)
	if err == nil || out.Seq != 0 {
		s.publishLocked()
	}
	return out, err
}

func (s *Session) processLocked(ctx context.Context, ev Event) (Outcome, error) {
	switch ev.Type {
	case EventStable:
		s.tracker.OnStabilityReached()
		return Outcome{Seq: s.clock.Next(), Type: EventStable, WasStable: true}, nil

	case EventHandoff:
		return s.processHandoff(ctx, ev.HandoffAt)

	case EventClick:
		return s.processClick(ctx, ev.Click)

	default:
		return Outcome{}, fmt.Errorf("unknown event type: %d", ev.Type)
	}
}

func (s *Session) processHandoff(ctx context.Context, at time.Duration) (Outcome, error) {
	if at < 0 {
		return Outcome{}, replay.NewNegativeTimestampError(at)
	}

	out := Outcome{Seq: s.clock.Next(), Type: EventHandoff, WasStable: s.tracker.IsStable()}

	if !s.handoff.Mark(at) {
		prev, _ := s.handoff.At()
		s.logger.Debug("hand-off already recorded", "at", prev, "ignored", at)
		return out, nil
	}

	s.logger.Info("hand-off recorded", "at", at)

	if s.sink != nil {
		if err := s.openSinkLocked(ctx); err != nil {
			return out, err
		}
		if err := s.sink.RecordHandoff(ctx, s.token, at, out.Seq); err != nil {
			return out, fmt.Errorf("record hand-off: %w", err)
		}
	}
	return out, nil
}

func (s *Session) processClick(ctx context.Context, click replay.Event) (Outcome, error) {
	if err := click.Validate(); err != nil {
		return Outcome{}, err
	}

	if click.ID == "" {
		id, err := ir.EventID(s.token, click.Target, click.Timestamp)
		if err != nil {
			return Outcome{}, fmt.Errorf("derive event id: %w", err)
		}
		click.ID = id
	}

	if s.dedupe != nil && s.dedupe.Seen(click.ID) {
		s.suppressed++
		out := Outcome{
			Seq:        s.clock.Next(),
			Type:       EventClick,
			Event:      click,
			Suppressed: true,
			WasStable:  s.tracker.IsStable(),
		}
		s.logger.Debug("duplicate suppressed",
			"event_id", click.ID,
			"timestamp", click.Timestamp,
			"phase", click.Phase,
		)
		if s.observer != nil {
			s.observer.ObserveSuppressed(s.cfg.Policy)
		}
		return out, s.recordLocked(ctx, out)
	}

	// A rejected click leaves the dedupe set untouched.
	entry, err := s.classifier.Classify(click)
	if err != nil {
		return Outcome{}, err
	}
	if s.dedupe != nil {
		s.dedupe.Record(click, entry.WasStable)
	}

	out := Outcome{
		Seq:       s.clock.Next(),
		Type:      EventClick,
		Event:     click,
		Entry:     &entry,
		WasStable: entry.WasStable,
	}

	s.logger.Debug("event classified",
		"event_id", click.ID,
		"timestamp", click.Timestamp,
		"classification", entry.Classification,
		"index", entry.Index,
		"stable", entry.WasStable,
	)
	if entry.Classification.IsDoubleFire() {
		s.logger.Warn("double fire detected",
			"event_id", click.ID,
			"timestamp", click.Timestamp,
			"double_fires", s.classifier.DoubleFires(),
		)
	}
	if s.observer != nil {
		s.observer.ObserveClassification(s.cfg.Policy, entry.Classification)
	}

	return out, s.recordLocked(ctx, out)
}

func (s *Session) recordLocked(ctx context.Context, out Outcome) error {
	if s.sink == nil {
		return nil
	}
	if err := s.openSinkLocked(ctx); err != nil {
		return err
	}
	if err := s.sink.RecordOutcome(ctx, s.token, out); err != nil {
		return fmt.Errorf("record outcome %d: %w", out.Seq, err)
	}
	return nil
}

func (s *Session) openSinkLocked(ctx context.Context) error {
	if s.sinkOpened {
		return nil
	}
	info := Info{Token: s.token, Policy: s.cfg.Policy, Dedupe: s.cfg.Dedupe}
	if err := s.sink.RecordSession(ctx, info); err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	s.sinkOpened = true
	return nil
}

// Enqueue hands ev to the Run loop. Returns false once closed.
func (s *Session) Enqueue(ev Event) bool {
	ev.reply = nil
	return s.queue.Enqueue(ev)
}

// Submit hands ev to the Run loop and waits for its outcome.
func (s *Session) Submit(ctx context.Context, ev Event) (Outcome, error) {
	reply := make(chan result, 1)
	ev.reply = reply

	if !s.queue.Enqueue(ev) {
		return Outcome{}, ErrClosed
	}

	select {
	case r := <-reply:
		return r.out, r.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case <-s.done:
		select {
		case r := <-reply:
			return r.out, r.err
		default:
			return Outcome{}, ErrClosed
		}
	}
}

// Run drains the queue until ctx is cancelled or the session is closed.
//
// Per-event failures are logged and the loop continues; Submit callers still
// receive the error.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Debug("session loop starting")

	for {
		ev, ok := s.queue.TryDequeue()
		if ok {
			out, err := s.Process(ctx, ev)
			if err != nil {
				s.logEventError(ev, err)
			}
			if ev.reply != nil {
				ev.reply <- result{out: out, err: err}
			}
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Debug("session loop stopping: context cancelled")
			return ctx.Err()

		case <-s.queue.Wait():
			if s.queue.Closed() && s.queue.Len() == 0 {
				s.logger.Debug("session loop stopping: closed")
				return nil
			}
		}
	}
}

func (s *Session) logEventError(ev Event, err error) {
	switch ev.Type {
	case EventClick:
		s.logger.Error("click processing failed",
			"error", err,
			"event_id", ev.Click.ID,
			"timestamp", ev.Click.Timestamp,
			"phase", ev.Click.Phase,
		)
	case EventHandoff:
		s.logger.Error("hand-off processing failed",
			"error", err,
			"at", ev.HandoffAt,
		)
	default:
		s.logger.Error("event processing failed",
			"error", err,
			"event_type", ev.Type.String(),
		)
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	cs := s.classifier.Snapshot()
	snap := Snapshot{
		Token:       s.token,
		Policy:      cs.Policy,
		Dedupe:      s.cfg.Dedupe,
		Stable:      cs.Stable,
		Seq:         s.clock.Current(),
		Total:       cs.Total,
		DoubleFires: cs.DoubleFires,
		Suppressed:  s.suppressed,
		Entries:     cs.Entries,
	}
	switch cs.Policy {
	case replay.PolicyCounting:
		snap.Pending = cs.Outstanding
	case replay.PolicyIdentity:
		snap.Seen = cs.Outstanding
	}
	if at, ok := s.handoff.At(); ok {
		snap.HandoffSet = true
		snap.HandoffMs = at.Milliseconds()
	}
	return snap
}

// Watch returns a channel receiving a snapshot after every processed event
// and stability transition. Slow readers miss intermediate snapshots; the
// channel always holds the latest one. cancel stops delivery and closes the
// channel. The channel is also closed when the session closes.
func (s *Session) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if w, ok := s.watchers[id]; ok {
				delete(s.watchers, id)
				close(w)
			}
		})
	}
	return ch, cancel
}

func (s *Session) publishLocked() {
	if len(s.watchers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.watchers {
		// Replace a stale snapshot rather than block.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Close releases the stability subscription, stops the Run loop and closes
// all watchers. Queued events that were not processed are discarded.
// Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.sub.Unsubscribe()
		s.queue.Close()

		s.mu.Lock()
		close(s.done)
		for id, ch := range s.watchers {
			delete(s.watchers, id)
			close(ch)
		}
		s.mu.Unlock()

		if dropped := len(s.queue.drain()); dropped > 0 {
			s.logger.Warn("session closed with queued events", "dropped", dropped)
		}
		s.logger.Debug("session closed")
	})
}
