package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic is the well-known billing events topic shared with the
// producing services.
const DefaultTopic = "user-billing-events"

// BusConfig describes the Kafka endpoints for readers and publishers.
type BusConfig struct {
	Brokers []string
	Topic   string // defaults to DefaultTopic
	GroupID string // consumer group, one per deploying service
}

func (c BusConfig) topic() string {
	if c.Topic == "" {
		return DefaultTopic
	}
	return c.Topic
}

// NewReader builds a consumer-group Kafka reader for the billing events
// topic. Offsets are committed explicitly by the Synchronizer, never
// automatically, to preserve at-least-once semantics.
func NewReader(cfg BusConfig) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("consumer group required")
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.topic(),
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0, // synchronous commits only
	}), nil
}

// busWriter is the producer side of the event bus. *kafka.Writer satisfies
// it.
type busWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits subscription lifecycle events for consumers such as the
// Synchronizer. Messages are keyed by user ID so each user's events stay
// ordered within one partition.
type Publisher struct {
	writer busWriter
}

// NewPublisher builds a Publisher writing to the billing events topic.
func NewPublisher(cfg BusConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker required")
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.topic(),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}, nil
}

// PublishSubscribe emits a SUBSCRIBE event for the user and returns the
// generated event ID.
func (p *Publisher) PublishSubscribe(ctx context.Context, userID string) (string, error) {
	return p.publish(ctx, Event{UserID: userID, Type: EventSubscribe})
}

// PublishUnsubscribe emits an UNSUBSCRIBE event for the user and returns
// the generated event ID.
func (p *Publisher) PublishUnsubscribe(ctx context.Context, userID string) (string, error) {
	return p.publish(ctx, Event{UserID: userID, Type: EventUnsubscribe})
}

func (p *Publisher) publish(ctx context.Context, event Event) (string, error) {
	if event.UserID == "" {
		return "", errors.New("user id required")
	}

	event.EventID = uuid.NewString()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := event.encode()
	if err != nil {
		return "", err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
	})
	if err != nil {
		return "", err
	}

	return event.EventID, nil
}

// Close flushes and releases the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
