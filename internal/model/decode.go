package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingID is returned when a decoded entity has no identifier.
var ErrMissingID = errors.New("missing id")

// DecodeStatus decodes a Status from its JSON text.
func DecodeStatus(data string) (Status, error) {
	var s Status
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return Status{}, fmt.Errorf("decode status: %w", err)
	}
	if s.ID == "" {
		return Status{}, fmt.Errorf("decode status: %w", ErrMissingID)
	}
	return s, nil
}

// DecodeNotification decodes a Notification from its JSON text.
func DecodeNotification(data string) (Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(data), &n); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if n.ID == "" {
		return Notification{}, fmt.Errorf("decode notification: %w", ErrMissingID)
	}
	if n.Type == "" {
		return Notification{}, errors.New("decode notification: missing type")
	}
	return n, nil
}

// DecodeConversation decodes a Conversation from its JSON text.
func DecodeConversation(data string) (Conversation, error) {
	var c Conversation
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return Conversation{}, fmt.Errorf("decode conversation: %w", err)
	}
	if c.ID == "" {
		return Conversation{}, fmt.Errorf("decode conversation: %w", ErrMissingID)
	}
	return c, nil
}
