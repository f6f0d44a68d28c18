package router

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/rickgao/fedistream/internal/model"
)

// Decoder turns frames into events.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a Decoder. A nil logger falls back to slog.Default().
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Decode classifies a frame. Errors are always *ParseError.
func (d *Decoder) Decode(frame Frame) (Event, error) {
	switch frame.Type {
	case websocket.PingMessage, websocket.PongMessage:
		return Heartbeat{}, nil
	case websocket.TextMessage:
		return d.decodeText(frame.Data)
	default:
		return nil, &ParseError{
			Payload: string(frame.Data),
			Err:     fmt.Errorf("%w (%s)", ErrUnsupportedFrame, FrameKind(frame.Type)),
		}
	}
}

// decodeText parses the envelope and dispatches on its tag.
func (d *Decoder) decodeText(data []byte) (Event, error) {
	env, err := parseEnvelope(data)
	if err != nil {
		return nil, &ParseError{Payload: string(data), Err: err}
	}

	tag, payload := *env.Event, *env.Payload

	switch tag {
	case TagUpdate:
		status, err := model.DecodeStatus(payload)
		if err != nil {
			return nil, d.entityError(tag, payload, err)
		}
		return Update{Status: status}, nil

	case TagNotification:
		n, err := model.DecodeNotification(payload)
		if err != nil {
			return nil, d.entityError(tag, payload, err)
		}
		return Notification{Notification: n}, nil

	case TagConversation:
		c, err := model.DecodeConversation(payload)
		if err != nil {
			return nil, d.entityError(tag, payload, err)
		}
		return Conversation{Conversation: c}, nil

	case TagDelete:
		return Delete{ID: payload}, nil

	default:
		return nil, &ParseError{Tag: tag, Payload: payload, Err: ErrUnknownEvent}
	}
}

// entityError logs the raw payload next to the decode error.
func (d *Decoder) entityError(tag, payload string, err error) error {
	d.logger.Error("failed to parse "+tag,
		"error", err,
		"payload", payload,
	)
	return &ParseError{Tag: tag, Payload: payload, Err: err}
}

// parseEnvelope requires both fields to be present and to be strings.
func parseEnvelope(data []byte) (messageEnvelope, error) {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return messageEnvelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Event == nil {
		return messageEnvelope{}, fmt.Errorf("%w: missing field `event`", ErrMalformedEnvelope)
	}
	if env.Payload == nil {
		return messageEnvelope{}, fmt.Errorf("%w: missing field `payload`", ErrMalformedEnvelope)
	}
	return env, nil
}
