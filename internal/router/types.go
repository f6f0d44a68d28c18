package router

import (
	"github.com/gorilla/websocket"

	"github.com/rickgao/fedistream/internal/model"
)

// Frame is a single frame read from the socket.
type Frame struct {
	Type int    // websocket.TextMessage, websocket.PingMessage, ...
	Data []byte // Frame payload (application data for control frames)
}

// TextFrame returns a text frame holding data.
func TextFrame(data string) Frame {
	return Frame{Type: websocket.TextMessage, Data: []byte(data)}
}

// FrameKind returns a short label for a frame type.
func FrameKind(frameType int) string {
	switch frameType {
	case websocket.TextMessage:
		return "text"
	case websocket.BinaryMessage:
		return "binary"
	case websocket.PingMessage:
		return "ping"
	case websocket.PongMessage:
		return "pong"
	case websocket.CloseMessage:
		return "close"
	default:
		return "unknown"
	}
}

// Event tags on the wire.
const (
	TagUpdate       = "update"
	TagNotification = "notification"
	TagConversation = "conversation"
	TagDelete       = "delete"
)

// EventType identifies an Event variant.
type EventType string

const (
	EventHeartbeat    EventType = "heartbeat"
	EventUpdate       EventType = "update"
	EventNotification EventType = "notification"
	EventConversation EventType = "conversation"
	EventDelete       EventType = "delete"
)

// Event is a decoded streaming event. The set of implementations is closed:
// Heartbeat, Update, Notification, Conversation and Delete.
type Event interface {
	Type() EventType
	isEvent()
}

// Heartbeat is produced for every ping or pong frame.
type Heartbeat struct{}

// Update carries a new or boosted status.
type Update struct {
	Status model.Status
}

// Notification carries a notification for the authenticated account.
type Notification struct {
	Notification model.Notification
}

// Conversation carries an updated direct-message conversation.
type Conversation struct {
	Conversation model.Conversation
}

// Delete carries the identifier of a deleted status, exactly as received.
type Delete struct {
	ID string
}

func (Heartbeat) Type() EventType    { return EventHeartbeat }
func (Update) Type() EventType       { return EventUpdate }
func (Notification) Type() EventType { return EventNotification }
func (Conversation) Type() EventType { return EventConversation }
func (Delete) Type() EventType       { return EventDelete }

func (Heartbeat) isEvent()    {}
func (Update) isEvent()       {}
func (Notification) isEvent() {}
func (Conversation) isEvent() {}
func (Delete) isEvent()       {}

// EntityID returns the identifier of the entity an event refers to, or ""
// for Heartbeat.
func EntityID(ev Event) string {
	switch e := ev.(type) {
	case Update:
		return e.Status.ID
	case Notification:
		return e.Notification.ID
	case Conversation:
		return e.Conversation.ID
	case Delete:
		return e.ID
	default:
		return ""
	}
}

// messageEnvelope is the outer wire object. Pointer fields distinguish a
// missing key from an empty string.
type messageEnvelope struct {
	Event   *string `json:"event"`
	Payload *string `json:"payload"`
}
