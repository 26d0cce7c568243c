package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"storefront/internal/domain"
)

// Stripe redirect-шлюз поверх Stripe Checkout
type Stripe struct {
	api     *client.API
	pricing Pricing
}

func NewStripe(secretKey string, pricing Pricing) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api, pricing: pricing}
}

var _ RedirectGateway = (*Stripe)(nil)

func (s *Stripe) CreateSession(ctx context.Context, order *domain.Order, origin string) (*Session, error) {
	params := checkoutParams(order, origin, s.pricing)
	params.Context = ctx
	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe checkout session: %v", ErrGateway, err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func checkoutParams(order *domain.Order, origin string, pricing Pricing) *stripe.CheckoutSessionParams {
	origin = strings.TrimRight(origin, "/")
	return &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(fmt.Sprintf("%s/verify?success=true&orderId=%s", origin, order.ID)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/verify?success=false&orderId=%s", origin, order.ID)),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  checkoutLineItems(order, pricing),
	}
}

func checkoutLineItems(order *domain.Order, pricing Pricing) []*stripe.CheckoutSessionLineItemParams {
	currency := strings.ToLower(pricing.Currency)
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(order.Items)+1)
	for _, it := range order.Items {
		items = append(items, lineItem(currency, it.Name, MinorUnits(it.Price), it.Quantity))
	}
	delivery, _ := pricing.DeliveryCharge.Float64()
	return append(items, lineItem(currency, DeliveryItemName, MinorUnits(delivery), 1))
}

func lineItem(currency, name string, unitAmount, quantity int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
			UnitAmount: stripe.Int64(unitAmount),
		},
		Quantity: stripe.Int64(quantity),
	}
}
