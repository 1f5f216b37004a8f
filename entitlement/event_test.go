package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestDecodeEventValid(t *testing.T) {
	payload := `{"user_id":"11111111-2222-3333-4444-555555555555","event_type":"SUBSCRIBE","timestamp":"2026-01-02T15:04:05Z","event_id":"evt-1"}`

	event, err := DecodeEvent([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if event.UserID != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("unexpected user id %q", event.UserID)
	}
	if event.Type != EventSubscribe {
		t.Fatalf("unexpected type %q", event.Type)
	}
	if event.EventID != "evt-1" {
		t.Fatalf("unexpected event id %q", event.EventID)
	}
	if event.Timestamp.IsZero() {
		t.Fatal("expected timestamp to parse")
	}
}

func TestDecodeEventErrors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{name: "not json", payload: `{{{{`, want: ErrMalformedEvent},
		{name: "missing user", payload: `{"event_type":"SUBSCRIBE"}`, want: ErrMalformedEvent},
		{name: "missing type", payload: `{"user_id":"u1"}`, want: ErrMalformedEvent},
		{name: "bad timestamp", payload: `{"user_id":"u1","event_type":"SUBSCRIBE","timestamp":"yesterday"}`, want: ErrMalformedEvent},
		{name: "unknown type", payload: `{"user_id":"u1","event_type":"PAUSE"}`, want: ErrUnknownEventType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeEvent([]byte(tc.payload)); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	fail     error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fail != nil {
		return w.fail
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublisherKeysByUserAndAttachesEventID(t *testing.T) {
	writer := &fakeWriter{}
	pub := &Publisher{writer: writer}

	eventID, err := pub.PublishSubscribe(context.Background(), "u1")
	if err != nil {
		t.Fatalf("PublishSubscribe failed: %v", err)
	}
	if eventID == "" {
		t.Fatal("expected a generated event id")
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "u1" {
		t.Fatalf("expected message keyed by user id, got %q", msg.Key)
	}

	var wire map[string]any
	if err := json.Unmarshal(msg.Value, &wire); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if wire["event_id"] != eventID {
		t.Fatalf("payload event_id %v does not match returned %q", wire["event_id"], eventID)
	}
	if wire["event_type"] != string(EventSubscribe) {
		t.Fatalf("unexpected event_type %v", wire["event_type"])
	}
	if wire["timestamp"] == "" {
		t.Fatal("expected a timestamp")
	}

	// The payload must round-trip through the consumer-side decoder.
	if _, err := DecodeEvent(msg.Value); err != nil {
		t.Fatalf("published payload failed to decode: %v", err)
	}
}

func TestPublisherRejectsEmptyUser(t *testing.T) {
	pub := &Publisher{writer: &fakeWriter{}}
	if _, err := pub.PublishUnsubscribe(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}
