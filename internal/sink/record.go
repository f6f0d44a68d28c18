package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rickgao/fedistream/internal/router"
)

// Record is the serialized form of an event shared by the Console and Redis
// sinks.
type Record struct {
	ID         string          `json:"id"`
	Stream     string          `json:"stream"`
	Type       string          `json:"type"`
	EntityID   string          `json:"entity_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// encodePayload returns the JSON form of the entity carried by ev. Delete
// encodes the id as a JSON string; Heartbeat has no payload.
func encodePayload(ev router.Event) (json.RawMessage, error) {
	var v any
	switch e := ev.(type) {
	case router.Heartbeat:
		return nil, nil
	case router.Update:
		v = e.Status
	case router.Notification:
		v = e.Notification
	case router.Conversation:
		v = e.Conversation
	case router.Delete:
		v = e.ID
	default:
		return nil, fmt.Errorf("unsupported event type %T", ev)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Type(), err)
	}
	return data, nil
}

// newRecord builds a Record for ev with a fresh id.
func newRecord(id, stream string, ev router.Event, receivedAt time.Time) (Record, error) {
	payload, err := encodePayload(ev)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:         id,
		Stream:     stream,
		Type:       string(ev.Type()),
		EntityID:   router.EntityID(ev),
		Payload:    payload,
		ReceivedAt: receivedAt.UTC(),
	}, nil
}
