package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// Type вид события заказа
type Type string

const (
	OrderPlaced        Type = "order.placed"
	OrderPaid          Type = "order.paid"
	OrderStatusChanged Type = "order.status_changed"
	OrderPaymentFailed Type = "order.payment_failed"
)

// Event событие жизненного цикла заказа, публикуется после коммита
type Event struct {
	ID            string               `json:"id"`
	Type          Type                 `json:"type"`
	OrderID       string               `json:"orderId"`
	UserID        string               `json:"userId"`
	Email         string               `json:"email,omitempty"`
	CustomerName  string               `json:"customerName,omitempty"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Amount        float64              `json:"amount"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// NewOrderEvent заполняет событие из заказа
func NewOrderEvent(t Type, o *domain.Order) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          t,
		OrderID:       o.ID,
		UserID:        o.UserID,
		Email:         o.Address.Email,
		CustomerName:  o.Address.FirstName,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Amount:        o.Amount,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher отправляет события во внешнюю шину
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher отбрасывает события (брокер не настроен)
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }

// MemoryPublisher копит события в памяти, для тестов и локального запуска
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemoryPublisher) Publish(_ context.Context, events ...Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

// Events снимок опубликованных событий
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
