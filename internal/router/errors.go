package router

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrUnsupportedFrame  = errors.New("frame is not ping, pong or text")
)

// ParseError reports a frame that could not be decoded. It never ends a
// session.
type ParseError struct {
	Tag     string // Envelope tag, empty if the envelope did not parse
	Payload string // Raw payload or frame text
	Err     error
}

func (e *ParseError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUnknownEvent):
		return fmt.Sprintf("unknown event is received: %s", e.Tag)
	case e.Tag != "":
		return fmt.Sprintf("failed to parse %s: %v", e.Tag, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reason returns a short label suitable for metrics.
func (e *ParseError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrMalformedEnvelope):
		return "envelope"
	case errors.Is(e.Err, ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(e.Err, ErrUnsupportedFrame):
		return "unsupported_frame"
	default:
		return "entity"
	}
}
