// Package events delivers domain events to Kafka, or nowhere.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"workshop-manager/internal/core"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// DefaultPublishTimeout caps how long Publish waits on the brokers.
const DefaultPublishTimeout = 2 * time.Second

// KafkaPublisher writes each event as a JSON message keyed by Event.Key.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// NewKafkaPublisher returns a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		timeout: DefaultPublishTimeout,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...core.Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		msg, err := encode(evt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d event(s) to kafka: %w", len(msgs), err)
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// encode turns an event into a message; the type also travels as a header so
// consumers can route without decoding the body.
func encode(evt core.Event) (kafka.Message, error) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal %s event: %w", evt.Type, err)
	}
	return kafka.Message{
		Key:     []byte(evt.Key),
		Value:   body,
		Time:    evt.OccurredAt,
		Headers: []kafka.Header{{Key: "type", Value: []byte(evt.Type)}},
	}, nil
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, events ...core.Event) error {
	for _, evt := range events {
		log.Debug().Str("event", evt.Type).Str("key", evt.Key).Msg("event (no broker configured)")
	}
	return nil
}

// New picks the Kafka publisher when brokers are configured, else LogPublisher.
// The returned close func is always safe to call.
func New(brokers []string, topic string) (core.EventPublisher, func() error) {
	if len(brokers) == 0 {
		return LogPublisher{}, func() error { return nil }
	}
	p := NewKafkaPublisher(brokers, topic)
	log.Info().Strs("brokers", brokers).Str("topic", topic).Msg("publishing events to kafka")
	return p, p.Close
}
