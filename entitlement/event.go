package entitlement

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedEvent is returned for events that cannot be decoded or are
// missing required fields. Malformed events are not recoverable by retrying
// and are dropped.
var ErrMalformedEvent = errors.New("malformed entitlement event")

// ErrUnknownEventType is returned for structurally valid events whose type
// is outside the supported set. Unknown types are dropped with a warning so
// future producers cannot crash the consumer loop.
var ErrUnknownEventType = errors.New("unknown entitlement event type")

// EventType enumerates the supported subscription lifecycle transitions.
type EventType string

const (
	// EventSubscribe grants the subscriber role.
	EventSubscribe EventType = "SUBSCRIBE"
	// EventUnsubscribe revokes the subscriber role.
	EventUnsubscribe EventType = "UNSUBSCRIBE"
)

// Event is one subscription-status transition. Produced once per
// transition, consumed zero or more times.
type Event struct {
	UserID    string    `json:"user_id"`
	Type      EventType `json:"event_type"`
	Timestamp time.Time `json:"-"`
	EventID   string    `json:"event_id,omitempty"`
}

// wireEvent is the bus JSON shape: timestamps travel as ISO-8601 strings.
type wireEvent struct {
	UserID    string `json:"user_id"`
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp,omitempty"`
	EventID   string `json:"event_id,omitempty"`
}

// DecodeEvent parses and validates a bus message payload. Missing user_id
// or event_type, or an unparseable timestamp, yield [ErrMalformedEvent]; a
// well-formed event with an unsupported type yields [ErrUnknownEventType].
func DecodeEvent(payload []byte) (Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if wire.UserID == "" || wire.EventType == "" {
		return Event{}, fmt.Errorf("%w: missing user_id or event_type", ErrMalformedEvent)
	}

	event := Event{
		UserID:  wire.UserID,
		EventID: wire.EventID,
	}

	if wire.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, wire.Timestamp)
		if err != nil {
			return Event{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedEvent, wire.Timestamp)
		}
		event.Timestamp = ts
	}

	switch EventType(wire.EventType) {
	case EventSubscribe, EventUnsubscribe:
		event.Type = EventType(wire.EventType)
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventType, wire.EventType)
	}

	return event, nil
}

// encode serializes an event to the wire shape.
func (e Event) encode() ([]byte, error) {
	wire := wireEvent{
		UserID:    e.UserID,
		EventType: string(e.Type),
		EventID:   e.EventID,
	}
	if !e.Timestamp.IsZero() {
		wire.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(wire)
}
