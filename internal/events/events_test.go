package events

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:            "65f1c0ffee0000000000abcd",
		UserID:        "65f1c0ffee0000000000ffff",
		Address:       domain.Address{FirstName: "Ann", Email: "ann@example.com"},
		Status:        domain.StatusOrderPlaced,
		PaymentMethod: domain.PaymentCOD,
		Amount:        42,
	}
}

func TestKafkaPublisher_EncodesEvents(t *testing.T) {
	w := &recordingWriter{}
	pub := &KafkaPublisher{writer: w}
	ev := NewOrderEvent(OrderPlaced, sampleOrder())

	require.NoError(t, pub.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "65f1c0ffee0000000000abcd", string(msg.Key))
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, string(OrderPlaced), string(msg.Headers[0].Value))

	decoded, err := fromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, "ann@example.com", decoded.Email)
	assert.Equal(t, domain.StatusOrderPlaced, decoded.Status)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	pub := &KafkaPublisher{writer: &recordingWriter{err: errors.New("broker down")}}
	err := pub.Publish(context.Background(), NewOrderEvent(OrderPaid, sampleOrder()))
	assert.Error(t, err)
}

func TestFromMessage_Malformed(t *testing.T) {
	_, err := fromMessage(kafka.Message{Value: []byte("{")})
	assert.Error(t, err)
}

func TestMemoryPublisher(t *testing.T) {
	var pub MemoryPublisher
	require.NoError(t, pub.Publish(context.Background(), NewOrderEvent(OrderPlaced, sampleOrder()), NewOrderEvent(OrderPaid, sampleOrder())))
	got := pub.Events()
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}
