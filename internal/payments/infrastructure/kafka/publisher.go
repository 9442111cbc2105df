package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/nest-deiber/payments-management-microservice/internal/payments/domain"
	"github.com/nest-deiber/payments-management-microservice/pkg/tracing"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewWriter builds an async writer: WriteMessages returns once the message
// is in the send buffer, without waiting for broker acknowledgment.
// Delivery failures surface in the completion callback and are only logged.
func NewWriter(log *slog.Logger, brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				for _, m := range messages {
					log.Error("async delivery failed, event lost", "topic", m.Topic, "key", string(m.Key), "err", err)
				}
			}
		},
	}
}

// Publisher routes domain events to their bus subject. One call, one
// message; it never retries.
type Publisher struct {
	log      *slog.Logger
	producer Producer
}

func NewPublisher(log *slog.Logger, producer Producer) *Publisher {
	return &Publisher{log: log, producer: producer}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", domain.ErrPublishFailure, err)
	}

	msg := kafka.Message{
		Topic:   event.Subject(),
		Key:     []byte(event.Key()),
		Value:   payload,
		Headers: tracing.InjectKafkaHeaders(ctx, nil),
	}
	if err := p.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPublishFailure, err)
	}
	p.log.Debug("event enqueued", "subject", event.Subject(), "key", event.Key())
	return nil
}
