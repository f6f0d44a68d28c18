package connection

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/fedistream/internal/metrics"
	"github.com/rickgao/fedistream/internal/router"
)

// Session performs single connection attempts against a streaming endpoint.
// A Session holds no per-connection state, so one value serves every attempt
// a Supervisor makes.
type Session struct {
	cfg     SessionConfig
	stream  string
	dialer  *websocket.Dialer
	decoder *router.Decoder
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSession creates a Session. stream labels metrics; m and logger may be nil.
func NewSession(cfg SessionConfig, stream string, m *metrics.Metrics, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}

	return &Session{
		cfg:    cfg,
		stream: stream,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		decoder: router.NewDecoder(logger),
		metrics: m,
		logger:  logger,
	}
}

// closeFrame records a close frame received from the peer.
type closeFrame struct {
	code int
	text string
}

// Run connects to url and reads until the connection ends. Events are
// delivered to sink synchronously. Cancelling ctx closes the socket.
func (s *Session) Run(ctx context.Context, url string, sink Sink) Outcome {
	logger := s.logger.With("session_id", uuid.NewString())

	conn, resp, err := s.dialer.DialContext(ctx, url, s.cfg.Header)
	if err != nil {
		if resp != nil {
			logger.Error("failed to connect", "error", err, "status", resp.StatusCode)
		} else {
			logger.Error("failed to connect", "error", err)
		}
		return Outcome{Failure: ConnectionFailure, Err: err}
	}
	defer conn.Close()

	logger.Debug("connected", "status", resp.StatusCode)
	logResponseHeaders(logger, resp.Header)

	s.metrics.SessionOpened(s.stream)
	defer s.metrics.SessionClosed(s.stream)

	// Unblock ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	out := s.readLoop(conn, sink, logger)
	out.Connected = true
	if ctxErr := ctx.Err(); ctxErr != nil && !out.CleanStop() {
		out.Err = ctxErr
	}
	return out
}

// readLoop reads frames until a close frame, a read error or a timeout.
func (s *Session) readLoop(conn *websocket.Conn, sink Sink, logger *slog.Logger) Outcome {
	var closed *closeFrame

	// Control frames are consumed inside ReadMessage, on this goroutine, so
	// the handlers below keep arrival order with data frames.
	conn.SetPingHandler(func(data string) error {
		s.metrics.Frame(s.stream, "ping")
		s.extendReadDeadline(conn)

		deadline := time.Now().Add(s.cfg.WriteTimeout)
		if err := conn.WriteControl(websocket.PongMessage, []byte(data), deadline); err != nil {
			logger.Error("failed to send pong", "error", err)
			s.metrics.SendFailure(s.stream, "pong")
		}

		s.dispatch(router.Frame{Type: websocket.PingMessage, Data: []byte(data)}, sink, logger)
		return nil
	})

	conn.SetPongHandler(func(data string) error {
		s.metrics.Frame(s.stream, "pong")
		s.extendReadDeadline(conn)
		s.dispatch(router.Frame{Type: websocket.PongMessage, Data: []byte(data)}, sink, logger)
		return nil
	})

	conn.SetCloseHandler(func(code int, text string) error {
		s.metrics.Frame(s.stream, "close")
		closed = &closeFrame{code: code, text: text}

		deadline := time.Now().Add(s.cfg.WriteTimeout)
		msg := websocket.FormatCloseMessage(code, "")
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			logger.Error("failed to acknowledge close", "error", err)
			s.metrics.SendFailure(s.stream, "close")
		}
		return nil
	})

	for {
		s.extendReadDeadline(conn)

		frameType, data, err := conn.ReadMessage()
		if err != nil {
			return s.classify(err, closed, logger)
		}

		s.metrics.Frame(s.stream, router.FrameKind(frameType))

		if len(data) == 0 {
			logger.Warn("response is empty", "kind", router.FrameKind(frameType))
			continue
		}

		s.dispatch(router.Frame{Type: frameType, Data: data}, sink, logger)
	}
}

// classify maps the error that ended the read loop to an Outcome.
func (s *Session) classify(err error, closed *closeFrame, logger *slog.Logger) Outcome {
	if closed != nil {
		logger.Warn("connection is closed by peer",
			"code", closed.code,
			"reason", closed.text,
		)
		// A close frame without a status code counts as a normal close.
		if closed.code != websocket.CloseNormalClosure && closed.code != websocket.CloseNoStatusReceived {
			return Outcome{Failure: AbnormalClose, Err: err, CloseCode: closed.code}
		}
		return Outcome{CloseCode: closed.code}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		logger.Error("timeout reading message", "timeout", s.cfg.ReadTimeout)
		return Outcome{Failure: ReadTimeout, Err: err}
	}

	logger.Error("failed to read message", "error", err)
	return Outcome{Failure: ReadFailure, Err: err}
}

// dispatch decodes a frame and hands the event to the sink. Decode failures
// are logged and dropped.
func (s *Session) dispatch(frame router.Frame, sink Sink, logger *slog.Logger) {
	ev, err := s.decoder.Decode(frame)
	if err != nil {
		reason := "entity"
		attrs := []any{"error", err, "kind", router.FrameKind(frame.Type)}

		var pe *router.ParseError
		if errors.As(err, &pe) {
			reason = pe.Reason()
			attrs = append(attrs, "tag", pe.Tag, "payload", pe.Payload)
		}

		logger.Warn("failed to decode message", attrs...)
		s.metrics.DecodeFailure(s.stream, reason)
		return
	}

	s.metrics.Event(s.stream, string(ev.Type()))
	sink.Handle(ev)
}

func (s *Session) extendReadDeadline(conn *websocket.Conn) {
	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
		s.logger.Debug("failed to set read deadline", "error", err)
	}
}

// logResponseHeaders logs handshake response header names (values may carry
// credentials).
func logResponseHeaders(logger *slog.Logger, header http.Header) {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	logger.Debug("response contains the following headers")
	for _, name := range names {
		logger.Debug("response header", "name", name)
	}
}
