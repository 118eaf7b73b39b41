package eventbus

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/event"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes transaction events keyed by transaction id, so every
// event of one transaction lands on the same partition in order.
type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt event.Event) error {
	value, err := event.Marshal(evt)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.TransactionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type())},
		},
		Time: evt.CreatedAt,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}
