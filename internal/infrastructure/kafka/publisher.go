package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"comanda/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisher writes domain events as JSON, keyed by aggregate, so every
// event of one order or ingredient lands on the same partition.
type EventPublisher struct {
	writer messageWriter
}

func NewEventPublisher(brokers []string, topic string) *EventPublisher {
	return &EventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *EventPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encoding event %s: %w", event.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.Key),
			Value: value,
			Time:  event.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(event.Type)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("writing events: %w", err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...domain.Event) error { return nil }
func (NopPublisher) Close() error                                   { return nil }
