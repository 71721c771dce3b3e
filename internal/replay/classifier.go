package replay

import (
	"errors"
	"time"

	"github.com/roach88/replaycheck/internal/eventlog"
	"github.com/roach88/replaycheck/internal/stability"
)

// Classifier applies a Strategy to a stream of events and keeps the
// counters and log a display needs.
//
// A Classifier is not safe for concurrent use; the owning session serialises
// calls.
type Classifier struct {
	strategy    Strategy
	stability   stability.Reader
	log         *eventlog.Log[Entry]
	now         func() time.Time
	total       int
	doubleFires int
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithNow sets the wall clock used for Entry.Time.
// Default: time.Now.
func WithNow(now func() time.Time) ClassifierOption {
	return func(c *Classifier) {
		c.now = now
	}
}

// WithLog makes the classifier append to an existing log.
func WithLog(l *eventlog.Log[Entry]) ClassifierOption {
	return func(c *Classifier) {
		c.log = l
	}
}

// NewClassifier creates a classifier over the given strategy and stability
// handle.
func NewClassifier(s Strategy, r stability.Reader, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		strategy:  s,
		stability: r,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = eventlog.New[Entry]()
	}
	return c
}

// Classify validates ev, asks the strategy for a verdict and records it.
//
// Stability is read at call time; it may have changed since the previous
// event. On a precondition error nothing is counted or logged.
func (c *Classifier) Classify(ev Event) (Entry, error) {
	if err := ev.Validate(); err != nil {
		return Entry{}, tagEventID(err, ev.ID)
	}

	stable := c.stability.IsStable()

	verdict, err := c.strategy.Classify(ev, stable)
	if err != nil {
		return Entry{}, tagEventID(err, ev.ID)
	}

	c.total++
	if verdict.IsDoubleFire() {
		c.doubleFires++
	}

	entry := Entry{
		Index:          c.total,
		Time:           c.now().Format(DisplayTimeLayout),
		Classification: verdict,
		WasStable:      stable,
	}
	c.log.Append(entry)

	return entry, nil
}

func tagEventID(err error, id string) error {
	var ce *ClassifyError
	if id != "" && errors.As(err, &ce) {
		return ce.WithEventID(id)
	}
	return err
}

// Policy returns the strategy's policy.
func (c *Classifier) Policy() Policy {
	return c.strategy.Policy()
}

// Total returns the number of classified events.
func (c *Classifier) Total() int {
	return c.total
}

// DoubleFires returns the number of bad-replay verdicts.
func (c *Classifier) DoubleFires() int {
	return c.doubleFires
}

// Outstanding returns the strategy's pending/seen count.
func (c *Classifier) Outstanding() int {
	return c.strategy.Outstanding()
}

// Entries returns the log, most recent first.
func (c *Classifier) Entries() []Entry {
	return c.log.Entries()
}

// Snapshot is the display view of a classifier.
type Snapshot struct {
	Policy      Policy  `json:"policy"`
	Stable      bool    `json:"stable"`
	Total       int     `json:"total"`
	DoubleFires int     `json:"double_fires"`
	Outstanding int     `json:"outstanding"`
	Entries     []Entry `json:"entries"`
}

// Snapshot captures the classifier's current state.
func (c *Classifier) Snapshot() Snapshot {
	return Snapshot{
		Policy:      c.strategy.Policy(),
		Stable:      c.stability.IsStable(),
		Total:       c.total,
		DoubleFires: c.doubleFires,
		Outstanding: c.strategy.Outstanding(),
		Entries:     c.log.Entries(),
	}
}
