package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

type payload struct {
	OrderID string `json:"order_id"`
}

func TestRabbitMQ_PublishesToTopicExchange(t *testing.T) {
	ch := &mockChannel{}
	p := &RabbitMQ{ch: ch, exchange: "bookingcore.events"}
	userID := uuid.New()

	ch.On("PublishWithContext", mock.Anything, "bookingcore.events", "order.completed", false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			var m Message
			if err := json.Unmarshal(msg.Body, &m); err != nil {
				return false
			}
			return msg.ContentType == "application/json" &&
				m.Event == "order.completed" &&
				m.UserID == userID.String()
		})).Return(nil).Once()

	err := p.Notify(context.Background(), userID, "order.completed", payload{OrderID: "o-1"})

	require.NoError(t, err)
	ch.AssertExpectations(t)
}

func TestRabbitMQ_ReturnsPublishError(t *testing.T) {
	ch := &mockChannel{}
	p := &RabbitMQ{ch: ch, exchange: "x"}

	ch.On("PublishWithContext", mock.Anything, "x", "booking.created", false, false, mock.Anything).
		Return(errors.New("channel closed")).Once()

	err := p.Notify(context.Background(), uuid.New(), "booking.created", payload{})

	assert.EqualError(t, err, "channel closed")
}

func TestKafka_KeysByUser(t *testing.T) {
	w := &mockWriter{}
	k := &Kafka{writer: w}
	userID := uuid.New()

	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 {
			return false
		}
		var m Message
		if err := json.Unmarshal(msgs[0].Value, &m); err != nil {
			return false
		}
		return string(msgs[0].Key) == userID.String() && m.Event == "order.refunded"
	})).Return(nil).Once()
	w.On("Close").Return(nil).Once()

	require.NoError(t, k.Notify(context.Background(), userID, "order.refunded", payload{OrderID: "o-2"}))
	require.NoError(t, k.Close())
	w.AssertExpectations(t)
}

func TestLog_WritesNotification(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := NewLog(zap.New(core))

	require.NoError(t, l.Notify(context.Background(), uuid.New(), "booking.cancelled", payload{}))

	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "booking.cancelled", entries[0].ContextMap()["event"])
}
