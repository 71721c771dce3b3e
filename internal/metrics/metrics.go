// Package metrics exposes Prometheus collectors for classifier activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/replaycheck/internal/replay"
	"github.com/roach88/replaycheck/internal/session"
)

const namespace = "replaycheck"

// Metrics reports verdicts and live sessions. It implements
// session.Observer. A nil *Metrics is a valid no-op.
type Metrics struct {
	events         *prometheus.CounterVec
	doubleFires    *prometheus.CounterVec
	suppressed     *prometheus.CounterVec
	sessionsActive prometheus.Gauge
}

var _ session.Observer = (*Metrics)(nil)

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Collectors that are already registered under the same name are reused, so
// several servers in one process share counters. Any other registration
// error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "events_total",
			Help:      "Classified events by policy and classification.",
		},
		[]string{"policy", "classification"},
	)
	doubleFires := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "double_fires_total",
			Help:      "Events classified as bad-replay.",
		},
		[]string{"policy"},
	)
	suppressed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedupe",
			Name:      "suppressed_total",
			Help:      "Events swallowed by the dedupe service before classification.",
		},
		[]string{"policy"},
	)
	sessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held by the server.",
		},
	)

	collectors := []prometheus.Collector{events, doubleFires, suppressed, sessionsActive}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch target := collector.(type) {
				case *prometheus.CounterVec:
					switch target { //nolint:exhaustive
					case events:
						events = already.ExistingCollector.(*prometheus.CounterVec)
					case doubleFires:
						doubleFires = already.ExistingCollector.(*prometheus.CounterVec)
					case suppressed:
						suppressed = already.ExistingCollector.(*prometheus.CounterVec)
					}
				case prometheus.Gauge:
					sessionsActive = already.ExistingCollector.(prometheus.Gauge)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		events:         events,
		doubleFires:    doubleFires,
		suppressed:     suppressed,
		sessionsActive: sessionsActive,
	}
}

// ObserveClassification counts one classified event.
func (m *Metrics) ObserveClassification(policy replay.Policy, c replay.Classification) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(string(policy), string(c)).Inc()
	if c.IsDoubleFire() {
		m.doubleFires.WithLabelValues(string(policy)).Inc()
	}
}

// ObserveSuppressed counts one event swallowed by the dedupe service.
func (m *Metrics) ObserveSuppressed(policy replay.Policy) {
	if m == nil || m.suppressed == nil {
		return
	}
	m.suppressed.WithLabelValues(string(policy)).Inc()
}

// SessionOpened marks a session as live.
func (m *Metrics) SessionOpened() {
	if m == nil || m.sessionsActive == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionClosed marks a session as released.
func (m *Metrics) SessionClosed() {
	if m == nil || m.sessionsActive == nil {
		return
	}
	m.sessionsActive.Dec()
}
