package connection

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rickgao/fedistream/internal/router"
)

// Errors
var (
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Timing defaults.
const (
	DefaultReadTimeout       = 60 * time.Second
	DefaultReconnectInterval = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
)

// FailureKind classifies a retryable session failure.
type FailureKind int

const (
	ConnectionFailure FailureKind = iota + 1 // Handshake did not complete
	ReadFailure                              // Transport error while waiting for a frame
	ReadTimeout                              // No frame within the read timeout
	AbnormalClose                            // Peer closed with a code other than 1000
)

func (k FailureKind) String() string {
	switch k {
	case ConnectionFailure:
		return "connection_failure"
	case ReadFailure:
		return "read_failure"
	case ReadTimeout:
		return "read_timeout"
	case AbnormalClose:
		return "abnormal_close"
	default:
		return "none"
	}
}

// Outcome is the terminal state of a Session. A zero Failure means the peer
// closed the connection normally and listening should stop.
type Outcome struct {
	Failure   FailureKind
	Err       error
	CloseCode int  // Status code of the received close frame, 0 if none
	Connected bool // True if the handshake completed
}

// CleanStop reports whether the session ended with a normal close.
func (o Outcome) CleanStop() bool {
	return o.Failure == 0
}

// String returns "clean_stop" or the failure kind.
func (o Outcome) String() string {
	if o.CleanStop() {
		return "clean_stop"
	}
	return o.Failure.String()
}

// Sink receives decoded events. Handle is called synchronously from the
// session's read loop, once per event, in arrival order; the next frame is
// not read until it returns.
type Sink interface {
	Handle(ev router.Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ev router.Event)

// Handle calls f(ev).
func (f SinkFunc) Handle(ev router.Event) {
	f(ev)
}

// Streamer is implemented by every streaming backend so callers can swap
// them transparently.
type Streamer interface {
	// Listen delivers events to sink until the stream ends cleanly or ctx
	// is cancelled.
	Listen(ctx context.Context, sink Sink) error
}

// SessionConfig configures a Session.
type SessionConfig struct {
	HandshakeTimeout time.Duration // Dial + upgrade deadline
	ReadTimeout      time.Duration // Max wait for the next frame
	WriteTimeout     time.Duration // Deadline for pong and close acknowledgements
	Header           http.Header   // Extra handshake headers (e.g. User-Agent)
}

// DefaultSessionConfig returns sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		HandshakeTimeout: DefaultHandshakeTimeout,
		ReadTimeout:      DefaultReadTimeout,
		WriteTimeout:     DefaultWriteTimeout,
	}
}
