package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "fedistream"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessionsTotal   *prometheus.CounterVec
	reconnectsTotal *prometheus.CounterVec
	activeSessions  *prometheus.GaugeVec
	framesTotal     *prometheus.CounterVec
	eventsTotal     *prometheus.CounterVec
	decodeFailures  *prometheus.CounterVec
	sendFailures    *prometheus.CounterVec
	sinkErrors      *prometheus.CounterVec
	sinkDuration    *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_total",
			Help:      "Socket sessions ended, by outcome",
		}, []string{"stream", "outcome"}),

		reconnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconnects_total",
			Help:      "Reconnection attempts after a retryable session failure",
		}, []string{"stream"}),

		activeSessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently past the handshake",
		}, []string{"stream"}),

		framesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_total",
			Help:      "Frames received, by kind",
		}, []string{"stream", "kind"}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_total",
			Help:      "Events delivered to the sink, by type",
		}, []string{"stream", "type"}),

		decodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decode_failures_total",
			Help:      "Frames that failed to decode, by reason",
		}, []string{"stream", "reason"}),

		sendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "send_failures_total",
			Help:      "Best-effort control frame sends that failed",
		}, []string{"stream", "control"}),

		sinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sink_errors_total",
			Help:      "Sink writes that failed",
		}, []string{"sink"}),

		sinkDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "sink_duration_seconds",
			Help:      "Time the read loop spent blocked in the sink",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"stream", "type"}),
	}
}

// SessionOpened marks a session as past its handshake.
func (m *Metrics) SessionOpened(stream string) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(stream).Inc()
}

// SessionClosed undoes SessionOpened.
func (m *Metrics) SessionClosed(stream string) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(stream).Dec()
}

// SessionEnded records a terminal session outcome.
func (m *Metrics) SessionEnded(stream, outcome string) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(stream, outcome).Inc()
}

// Reconnect records a reconnection attempt.
func (m *Metrics) Reconnect(stream string) {
	if m == nil {
		return
	}
	m.reconnectsTotal.WithLabelValues(stream).Inc()
}

// Frame records a received frame.
func (m *Metrics) Frame(stream, kind string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(stream, kind).Inc()
}

// Event records an event handed to the sink.
func (m *Metrics) Event(stream, eventType string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(stream, eventType).Inc()
}

// DecodeFailure records a frame that failed to decode.
func (m *Metrics) DecodeFailure(stream, reason string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(stream, reason).Inc()
}

// SendFailure records a failed pong or close acknowledgement.
func (m *Metrics) SendFailure(stream, control string) {
	if m == nil {
		return
	}
	m.sendFailures.WithLabelValues(stream, control).Inc()
}

// SinkError records a failed sink write.
func (m *Metrics) SinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}

// SinkDuration records how long a sink took to accept one event.
func (m *Metrics) SinkDuration(stream, eventType string, d time.Duration) {
	if m == nil {
		return
	}
	m.sinkDuration.WithLabelValues(stream, eventType).Observe(d.Seconds())
}
