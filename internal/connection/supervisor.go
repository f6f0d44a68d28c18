package connection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/fedistream/internal/metrics"
)

// Supervisor runs Sessions against one endpoint until the peer closes the
// stream normally.
type Supervisor struct {
	endpoint   Endpoint
	name       string
	sessionCfg SessionConfig
	policy     RetryPolicy
	metrics    *metrics.Metrics
	logger     *slog.Logger

	session *Session
}

var _ Streamer = (*Supervisor)(nil)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// WithRetryPolicy replaces the default fixed 5 second reconnect delay.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Supervisor) {
		s.policy = p
	}
}

// WithSessionConfig sets timeouts and handshake headers.
func WithSessionConfig(cfg SessionConfig) Option {
	return func(s *Supervisor) {
		s.sessionCfg = cfg
	}
}

// WithName sets the label used in logs and metrics. Defaults to the stream.
func WithName(name string) Option {
	return func(s *Supervisor) {
		s.name = name
	}
}

// NewSupervisor creates a Supervisor for endpoint.
func NewSupervisor(endpoint Endpoint, opts ...Option) *Supervisor {
	s := &Supervisor{
		endpoint:   endpoint.clone(),
		name:       endpoint.Stream,
		sessionCfg: DefaultSessionConfig(),
		policy:     DefaultRetryPolicy(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.policy == nil {
		s.policy = DefaultRetryPolicy()
	}
	s.logger = s.logger.With("stream", s.name)
	s.session = NewSession(s.sessionCfg, s.name, s.metrics, s.logger)

	return s
}

// Endpoint returns the endpoint this Supervisor connects to.
func (s *Supervisor) Endpoint() Endpoint {
	return s.endpoint.clone()
}

// Listen delivers events to sink until a session ends with a normal close,
// in which case it returns nil. Retryable failures are never surfaced: the
// Supervisor waits per its RetryPolicy and reconnects. Listen returns
// ctx.Err() once ctx is cancelled, and an error wrapping ErrRetriesExhausted
// if the policy gives up.
func (s *Supervisor) Listen(ctx context.Context, sink Sink) error {
	url := s.endpoint.URL()
	logURL := s.endpoint.RedactedURL()

	failures := 0
	for {
		out := s.session.Run(ctx, url, sink)
		s.metrics.SessionEnded(s.name, out.String())

		if out.CleanStop() {
			s.logger.Info("connection is closed", "url", logURL, "code", out.CloseCode)
			return nil
		}

		if err := ctx.Err(); err != nil {
			s.logger.Info("stopped listening", "url", logURL)
			return err
		}

		if out.Connected {
			failures = 0
		}
		failures++

		delay, ok := s.policy.Next(failures, out.Failure)
		if !ok {
			s.logger.Error("giving up reconnecting",
				"url", logURL,
				"attempts", failures,
				"failure", out.Failure.String(),
			)
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, failures, out.Err)
		}

		s.logger.Warn("session ended",
			"url", logURL,
			"failure", out.Failure.String(),
			"error", out.Err,
			"retry_in", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("stopped listening", "url", logURL)
			return ctx.Err()
		case <-timer.C:
		}

		s.metrics.Reconnect(s.name)
		s.logger.Info("reconnecting", "url", logURL, "attempt", failures)
	}
}
