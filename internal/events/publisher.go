// Package events publishes committed domain changes to Kafka so other
// services can follow persons and publications of the laboratory.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/labmanager-service/internal/domain"
	"github.com/helixir/labmanager-service/internal/observability"
)

// Header keys set on every published message.
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

// Publisher delivers domain events.
type Publisher interface {
	Publish(ctx context.Context, events ...*domain.Event) error
}

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the topic events are written to.
	Topic string
	// BatchSize is the maximum number of messages per batch.
	BatchSize int
	// BatchTimeout bounds how long a partial batch waits before being sent.
	BatchTimeout time.Duration
}

// KafkaPublisher writes events to a single topic, keyed by aggregate id so
// that events of one person or publication stay ordered.
type KafkaPublisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  zerolog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg Config, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
	return newKafkaPublisher(writer, metrics, logger)
}

func newKafkaPublisher(writer messageWriter, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		metrics: metrics,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish writes all events in one call. Either every event is counted as
// published or every event is counted as failed.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := toMessage(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		for _, e := range events {
			if p.metrics != nil {
				p.metrics.RecordEventFailed(e.EventType)
			}
		}
		p.logger.Error().Err(err).Int("count", len(events)).Msg("failed to publish events")
		return fmt.Errorf("failed to publish %d events: %w", len(events), err)
	}

	for _, e := range events {
		if p.metrics != nil {
			p.metrics.RecordEventPublished(e.EventType)
		}
		p.logger.Debug().
			Str("event_id", e.EventID).
			Str("event_type", e.EventType).
			Str("aggregate_id", e.AggregateID).
			Msg("published event")
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info().Msg("closing event publisher")
	return p.writer.Close()
}

func toMessage(e *domain.Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event %s: %w", e.EventID, err)
	}
	return kafka.Message{
		Key:   []byte(e.AggregateType + ":" + e.AggregateID),
		Value: value,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.EventType)},
			{Key: HeaderEventID, Value: []byte(e.EventID)},
		},
	}, nil
}

// NopPublisher discards every event. It is used when Kafka is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ...*domain.Event) error { return nil }
