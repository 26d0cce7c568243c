// Package payment адаптеры внешних платёжных шлюзов.
//
// Redirect-шлюз (Stripe Checkout) возвращает ссылку на страницу оплаты, клиент
// возвращается с флагом успеха. Polling-шлюз (Razorpay Orders) создаёт удалённый
// заказ; после оплаты бэкенд сам запрашивает его статус.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var (
	ErrNotConfigured = errors.New("payment gateway not configured")
	ErrGateway       = errors.New("payment gateway error")
)

// DeliveryItemName название позиции доставки в каждой сессии оплаты
const DeliveryItemName = "Delivery Charges"

// Session сессия оплаты на стороне шлюза
type Session struct {
	ID  string
	URL string
}

// Intent удалённый заказ polling-шлюза
type Intent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Paid true, если шлюз отметил заказ оплаченным
func (i *Intent) Paid() bool { return i.Status == "paid" }

// RedirectGateway создаёт сессии оплаты
type RedirectGateway interface {
	CreateSession(ctx context.Context, order *domain.Order, origin string) (*Session, error)
}

// PollingGateway создаёт удалённые заказы и читает их состояние
type PollingGateway interface {
	CreateIntent(ctx context.Context, order *domain.Order) (*Intent, error)
	FetchIntent(ctx context.Context, id string) (*Intent, error)
}

// Pricing общие для магазина параметры оплаты
type Pricing struct {
	Currency       string
	DeliveryCharge decimal.Decimal
}

// MinorUnits переводит сумму в минимальные единицы валюты (пайсы, центы)
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// OrderTotal Σ price × quantity плюс доставка, с округлением до сотых
func (p Pricing) OrderTotal(items []domain.LineItem) decimal.Decimal {
	total := p.DeliveryCharge
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total.Round(2)
}
