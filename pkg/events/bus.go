package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SubjectPrefix namespaces every chat domain event on the bus.
const SubjectPrefix = "chat."

// Publisher sends events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event Event) error

// Subscriber registers handlers for subjects on the bus.
type Subscriber interface {
	Subscribe(subject string, durableName string, handler EventHandler) error
}

// SubjectFor returns the bus subject an event type is published on.
func SubjectFor(eventType string) string {
	return SubjectPrefix + eventType
}

// envelope is the wire form of an event. It keeps the type and time
// alongside the payload so subscribers can rebuild the event.
type envelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Marshal encodes an event for the wire.
func Marshal(event Event) ([]byte, error) {
	data, err := json.Marshal(envelope{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Unmarshal decodes an event written by Marshal.
func Unmarshal(data []byte) (BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return BaseEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if env.Type == "" {
		return BaseEvent{}, fmt.Errorf("failed to unmarshal event: missing type")
	}
	if env.Data == nil {
		env.Data = map[string]interface{}{}
	}
	return BaseEvent{Type: env.Type, Data: env.Data, OccurredAt: env.OccurredAt}, nil
}
