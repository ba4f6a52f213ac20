// Package events publishes collection run lifecycle events to Kafka so
// downstream consumers (dashboards, alerting, other services) can follow
// runs without polling the database. Publishing is best effort: the
// orchestrator logs publish failures and keeps running.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/scholarnet/paper-network-service/internal/observability"
)

// Publisher is the sink for collection run events. Event types and payload
// shapes are defined in the domain package.
type Publisher interface {
	// Publish emits one event. The payload is JSON-serialized into the
	// event envelope.
	Publish(ctx context.Context, eventType string, payload interface{}) error

	// Close flushes and releases the underlying transport.
	Close() error
}

// Envelope is the wire form of one event.
type Envelope struct {
	EventID      string      `json:"event_id"`
	EventType    string      `json:"event_type"`
	CollectionID string      `json:"collection_id,omitempty"`
	TaskID       string      `json:"task_id,omitempty"`
	OccurredAt   time.Time   `json:"occurred_at"`
	Payload      interface{} `json:"payload"`
}

// newEnvelope wraps a payload with event identity and the run identity
// carried by the context.
func newEnvelope(ctx context.Context, eventType string, payload interface{}) Envelope {
	collectionID, taskID := observability.RunFromContext(ctx)
	return Envelope{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		CollectionID: collectionID,
		TaskID:       taskID,
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	}
}

// messageWriter is the slice of kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// defaultBatchTimeout is how long a partial batch waits before it is sent.
// Short, because a run emits a handful of events and should not sit on them.
const defaultBatchTimeout = 50 * time.Millisecond

// Config holds Kafka publisher settings.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the topic collection events are published to.
	Topic string
	// BatchSize caps how many messages are buffered per batch. Zero keeps
	// the kafka-go default.
	BatchSize int
	// BatchTimeout is how long a partial batch waits before it is sent.
	// Zero means defaultBatchTimeout.
	BatchTimeout time.Duration
}

// KafkaPublisher publishes events to a Kafka topic. Messages are keyed by
// collection ID so one run's events stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher writing to the configured topic.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger) *KafkaPublisher {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish wraps the payload in an envelope and writes it to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	envelope := newEnvelope(ctx, eventType, payload)

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", eventType, err)
	}

	key := []byte(envelope.CollectionID)
	if len(key) == 0 {
		key = []byte(envelope.EventID)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("write event %s: %w", eventType, err)
	}

	p.logger.Debug().
		Str("event_type", eventType).
		Str("event_id", envelope.EventID).
		Str("collection_id", envelope.CollectionID).
		Msg("event published")

	return nil
}

// Close closes the Kafka writer, flushing any batched messages.
func (p *KafkaPublisher) Close() error {
	p.logger.Debug().Msg("closing event publisher")
	return p.writer.Close()
}

// NopPublisher discards all events. It is the default when no broker is
// configured.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

// Publish discards the event.
func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// Close is a no-op.
func (NopPublisher) Close() error { return nil }
