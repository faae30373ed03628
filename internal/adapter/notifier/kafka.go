package notifier

import (
	"context"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka keys every message by user id so one user's notifications stay in
// order on a single partition.
type Kafka struct {
	writer messageWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (k *Kafka) Notify(ctx context.Context, userID uuid.UUID, event string, payload any) error {
	b, err := encode(userID, event, payload)
	if err != nil {
		return err
	}

	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(userID.String()),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event)},
		},
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
