package sink

import (
	"log/slog"
	"time"

	"github.com/rickgao/fedistream/internal/connection"
	"github.com/rickgao/fedistream/internal/metrics"
	"github.com/rickgao/fedistream/internal/router"
)

// Log writes one record per event. Heartbeats are logged at debug level.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log sink.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Handle implements connection.Sink.
func (l *Log) Handle(ev router.Event) {
	if _, ok := ev.(router.Heartbeat); ok {
		l.logger.Debug("heartbeat")
		return
	}
	l.logger.Info("event received",
		"type", ev.Type(),
		"entity_id", router.EntityID(ev),
	)
}

// Multi delivers every event to each sink in order.
type Multi []connection.Sink

// Handle implements connection.Sink.
func (m Multi) Handle(ev router.Event) {
	for _, s := range m {
		s.Handle(ev)
	}
}

// Instrumented measures how long the wrapped sink blocks the read loop.
type Instrumented struct {
	next    connection.Sink
	stream  string
	metrics *metrics.Metrics
}

// NewInstrumented wraps next. A nil m records nothing.
func NewInstrumented(next connection.Sink, stream string, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, stream: stream, metrics: m}
}

// Handle implements connection.Sink.
func (i *Instrumented) Handle(ev router.Event) {
	start := time.Now()
	i.next.Handle(ev)
	i.metrics.SinkDuration(i.stream, string(ev.Type()), time.Since(start))
}

var (
	_ connection.Sink = (*Log)(nil)
	_ connection.Sink = Multi(nil)
	_ connection.Sink = (*Instrumented)(nil)
)
