package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/events"
)

type fakeMailer struct {
	sent []Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestNotifier_StatusChanged(t *testing.T) {
	mailer := &fakeMailer{}
	n := NewNotifier(mailer, zerolog.Nop())

	err := n.Handle(context.Background(), events.Event{
		Type: events.OrderStatusChanged, OrderID: "o1", Email: "ann@example.com",
		CustomerName: "Ann", Status: domain.StatusShipped,
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ann@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Body, "Order o1 is now: Shipped.")
	assert.Contains(t, mailer.sent[0].Body, "Hi Ann")
}

func TestNotifier_Placed_DefaultName(t *testing.T) {
	mailer := &fakeMailer{}
	n := NewNotifier(mailer, zerolog.Nop())

	require.NoError(t, n.Handle(context.Background(), events.Event{
		Type: events.OrderPlaced, OrderID: "o2", Email: "x@example.com", Amount: 12.5, PaymentMethod: domain.PaymentCOD,
	}))
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Body, "Hi there")
	assert.Contains(t, mailer.sent[0].Body, "12.50 has been placed (COD)")
}

func TestNotifier_SkipsWithoutRecipientOrTemplate(t *testing.T) {
	mailer := &fakeMailer{}
	n := NewNotifier(mailer, zerolog.Nop())

	require.NoError(t, n.Handle(context.Background(), events.Event{Type: events.OrderPaid, OrderID: "o3"}))
	require.NoError(t, n.Handle(context.Background(), events.Event{Type: "order.unknown", Email: "a@b.c"}))
	assert.Empty(t, mailer.sent)
}

func TestNotifier_MailerError(t *testing.T) {
	n := NewNotifier(&fakeMailer{err: errors.New("smtp down")}, zerolog.Nop())
	err := n.Handle(context.Background(), events.Event{Type: events.OrderPaid, Email: "a@b.c"})
	assert.Error(t, err)
}
