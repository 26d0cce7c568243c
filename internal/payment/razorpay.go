package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"

	"storefront/internal/domain"
)

// razorpayOrders используемая часть ресурса orders из SDK
type razorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Razorpay polling-шлюз поверх Razorpay Orders
type Razorpay struct {
	orders  razorpayOrders
	pricing Pricing
}

func NewRazorpay(keyID, keySecret string, pricing Pricing) *Razorpay {
	c := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{orders: c.Order, pricing: pricing}
}

var _ PollingGateway = (*Razorpay)(nil)

// CreateIntent создаёт удалённый заказ на сумму заказа, receipt содержит id нашего заказа
func (r *Razorpay) CreateIntent(ctx context.Context, order *domain.Order) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := r.orders.Create(map[string]interface{}{
		"amount":   MinorUnits(order.Amount),
		"currency": strings.ToUpper(r.pricing.Currency),
		"receipt":  order.ID,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: razorpay create order: %v", ErrGateway, err)
	}
	return decodeIntent(body)
}

// FetchIntent читает состояние удалённого заказа
func (r *Razorpay) FetchIntent(ctx context.Context, id string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := r.orders.Fetch(id, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: razorpay fetch order %s: %v", ErrGateway, id, err)
	}
	return decodeIntent(body)
}

func decodeIntent(body map[string]interface{}) (*Intent, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode razorpay order: %v", ErrGateway, err)
	}
	var in Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: decode razorpay order: %v", ErrGateway, err)
	}
	if in.ID == "" {
		return nil, fmt.Errorf("%w: razorpay order without id", ErrGateway)
	}
	return &in, nil
}
