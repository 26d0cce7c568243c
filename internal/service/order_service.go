package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/idempotency"
	"storefront/internal/payment"
	"storefront/internal/repository"
)

// OrderOptions необязательные зависимости сервиса заказов
type OrderOptions struct {
	Redirect       payment.RedirectGateway
	Polling        payment.PollingGateway
	Pricing        payment.Pricing
	Events         events.Publisher
	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
	Log            zerolog.Logger
}

// OrderService реализует жизненный цикл заказа: оформление, оплата через шлюзы,
// отмена и возврат со сверкой склада
type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	users    repository.UserRepository
	tx       repository.TxManager

	redirect payment.RedirectGateway
	polling  payment.PollingGateway
	pricing  payment.Pricing
	events   events.Publisher
	idem     idempotency.Store
	idemTTL  time.Duration
	log      zerolog.Logger
}

func NewOrderService(products repository.ProductRepository, orders repository.OrderRepository, users repository.UserRepository, tx repository.TxManager, opts OrderOptions) *OrderService {
	s := &OrderService{
		products: products,
		orders:   orders,
		users:    users,
		tx:       tx,
		redirect: opts.Redirect,
		polling:  opts.Polling,
		pricing:  opts.Pricing,
		events:   opts.Events,
		idem:     opts.Idempotency,
		idemTTL:  opts.IdempotencyTTL,
		log:      opts.Log.With().Str("component", "orders").Logger(),
	}
	if s.pricing.Currency == "" {
		s.pricing.Currency = "inr"
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.idem == nil {
		s.idem = idempotency.NewMemoryStore()
	}
	if s.idemTTL <= 0 {
		s.idemTTL = 24 * time.Hour
	}
	return s
}

// PlaceOrderRequest данные оформления заказа
type PlaceOrderRequest struct {
	UserID         string
	Items          []domain.LineItem
	Amount         float64
	Address        domain.Address
	Method         domain.PaymentMethod
	Origin         string
	IdempotencyKey string
}

// Checkout результат оформления: заказ и, для шлюзов, данные для оплаты
type Checkout struct {
	Order      *domain.Order
	SessionURL string
	Intent     *payment.Intent
}

func (s *OrderService) validatePlacement(req PlaceOrderRequest) error {
	if !repository.ValidID(req.UserID) || len(req.Items) == 0 {
		return ErrInvalidInput
	}
	for _, it := range req.Items {
		if !repository.ValidID(it.ProductID) || it.Quantity <= 0 || it.Price < 0 {
			return ErrInvalidInput
		}
	}
	switch req.Method {
	case domain.PaymentCOD:
	case domain.PaymentStripe:
		if s.redirect == nil {
			return ErrGatewayDisabled
		}
	case domain.PaymentRazorpay:
		if s.polling == nil {
			return ErrGatewayDisabled
		}
	default:
		return ErrInvalidInput
	}
	want := s.pricing.OrderTotal(req.Items)
	if !decimal.NewFromFloat(req.Amount).Round(2).Equal(want) {
		return fmt.Errorf("%w: expected %s", ErrAmountMismatch, want.StringFixed(2))
	}
	return nil
}

// PlaceOrder проверяет остатки по всем позициям и создаёт заказ. Для COD остаток
// списывается сразу, для шлюзов только после подтверждения оплаты.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (res *Checkout, err error) {
	if err := s.validatePlacement(req); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		key := "checkout:" + req.UserID + ":" + req.IdempotencyKey
		ok, err := s.idem.Reserve(ctx, key, s.idemTTL)
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if !ok {
			return nil, ErrDuplicate
		}
		defer func() {
			if err != nil {
				if rerr := s.idem.Release(context.WithoutCancel(ctx), key); rerr != nil {
					s.log.Warn().Err(rerr).Str("key", key).Msg("release idempotency key")
				}
			}
		}()
	}

	order := &domain.Order{
		UserID:        req.UserID,
		Items:         req.Items,
		Address:       req.Address,
		Amount:        req.Amount,
		PaymentMethod: req.Method,
		Payment:       false,
		Status:        domain.StatusOrderPlaced,
	}
	qty := domain.SumQuantities(req.Items)

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkStock(ctx, qty); err != nil {
			return err
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		if req.Method != domain.PaymentCOD {
			return nil
		}
		if err := s.takeStock(ctx, qty); err != nil {
			return err
		}
		return s.clearCart(ctx, req.UserID)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", req.UserID).Str("method", string(req.Method)).Msg("place order")
		return nil, err
	}

	res = &Checkout{Order: order}
	switch req.Method {
	case domain.PaymentStripe:
		sess, err := s.redirect.CreateSession(ctx, order, req.Origin)
		if err != nil {
			return nil, s.discardUnpaid(ctx, order, err)
		}
		order.GatewayRef = sess.ID
		res.SessionURL = sess.URL
	case domain.PaymentRazorpay:
		intent, err := s.polling.CreateIntent(ctx, order)
		if err != nil {
			return nil, s.discardUnpaid(ctx, order, err)
		}
		order.GatewayRef = intent.ID
		res.Intent = intent
	}
	if order.GatewayRef != "" {
		if err := s.orders.Update(ctx, order); err != nil {
			s.log.Error().Err(err).Str("order_id", order.ID).Msg("store gateway reference")
		}
	} else {
		s.publish(ctx, events.OrderPlaced, order)
	}

	s.log.Info().Str("order_id", order.ID).Str("user_id", order.UserID).Str("method", string(order.PaymentMethod)).Float64("amount", order.Amount).Msg("order placed")
	return res, nil
}

// discardUnpaid removes an order whose gateway call failed; stock was never taken for it.
func (s *OrderService) discardUnpaid(ctx context.Context, order *domain.Order, cause error) error {
	s.log.Error().Err(cause).Str("order_id", order.ID).Str("method", string(order.PaymentMethod)).Msg("gateway checkout failed")
	if err := s.orders.Delete(context.WithoutCancel(ctx), order.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Error().Err(err).Str("order_id", order.ID).Msg("discard unpaid order")
	}
	return cause
}

// VerifyStripe подтверждение оплаты по флагу из redirect-ссылки.
// При неуспехе неоплаченный заказ удаляется целиком.
func (s *OrderService) VerifyStripe(ctx context.Context, userID, orderID string, success bool) (*domain.Order, error) {
	if !repository.ValidID(orderID) {
		return nil, ErrInvalidID
	}
	if success {
		return s.markPaid(ctx, userID, orderID, domain.PaymentStripe, "")
	}

	var discarded *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.ownedOrder(ctx, userID, orderID)
		if err != nil {
			return err
		}
		if o.Payment {
			return fmt.Errorf("%w: order already paid", ErrInvalidState)
		}
		if o.PaymentMethod != domain.PaymentStripe {
			return fmt.Errorf("%w: %s order is not a stripe checkout", ErrInvalidState, o.PaymentMethod)
		}
		if o.Status != domain.StatusOrderPlaced {
			return fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
		}
		if err := s.orders.Delete(ctx, o.ID); err != nil {
			return err
		}
		discarded = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", orderID).Msg("unpaid order discarded after failed payment")
	s.publish(ctx, events.OrderPaymentFailed, discarded)
	return nil, ErrPaymentFailed
}

// VerifyRazorpay запрашивает удалённый заказ и при статусе paid помечает наш заказ оплаченным
func (s *OrderService) VerifyRazorpay(ctx context.Context, userID, gatewayOrderID string) (*domain.Order, error) {
	if s.polling == nil {
		return nil, ErrGatewayDisabled
	}
	if gatewayOrderID == "" {
		return nil, ErrInvalidInput
	}
	intent, err := s.polling.FetchIntent(ctx, gatewayOrderID)
	if err != nil {
		s.log.Error().Err(err).Str("gateway_order_id", gatewayOrderID).Msg("fetch razorpay order")
		return nil, err
	}
	if !intent.Paid() {
		return nil, ErrPaymentFailed
	}
	if !repository.ValidID(intent.Receipt) {
		return nil, fmt.Errorf("%w: receipt %q", ErrInvalidID, intent.Receipt)
	}
	return s.markPaid(ctx, userID, intent.Receipt, domain.PaymentRazorpay, gatewayOrderID)
}

// markPaid списывает склад и ставит payment=true. Заказ должен быть оформлен
// через method, а gatewayRef, если задан, совпадать с сохранённым.
func (s *OrderService) markPaid(ctx context.Context, userID, orderID string, method domain.PaymentMethod, gatewayRef string) (*domain.Order, error) {
	var (
		paid    *domain.Order
		already bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.ownedOrder(ctx, userID, orderID)
		if err != nil {
			return err
		}
		if o.PaymentMethod != method {
			return fmt.Errorf("%w: %s order cannot be verified as %s", ErrInvalidState, o.PaymentMethod, method)
		}
		if gatewayRef != "" && o.GatewayRef != gatewayRef {
			return fmt.Errorf("%w: gateway reference mismatch", ErrInvalidState)
		}
		if o.Payment {
			paid, already = o, true
			return nil
		}
		if !o.Status.Payable() {
			return fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
		}
		qty := o.Quantities()
		if err := s.checkStock(ctx, qty); err != nil {
			return err
		}
		if err := s.takeStock(ctx, qty); err != nil {
			return err
		}
		o.Payment = true
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		paid = o
		return s.clearCart(ctx, o.UserID)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("order_id", orderID).Msg("mark order paid")
		return nil, err
	}
	if !already {
		s.log.Info().Str("order_id", paid.ID).Str("method", string(paid.PaymentMethod)).Msg("payment verified")
		s.publish(ctx, events.OrderPaid, paid)
	}
	return paid, nil
}

// UpdateStatus административная смена статуса. Пустое действие означает set_status.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, target domain.OrderStatus, action domain.Action) (*domain.Order, error) {
	if action == "" {
		action = domain.ActionSetStatus
	}
	return s.transition(ctx, "", orderID, action, target)
}

// RequestCancellation запрос отмены из Order Placed или Processing
func (s *OrderService) RequestCancellation(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.transition(ctx, userID, orderID, domain.ActionRequestCancellation, "")
}

// CancelOrder запрос отмены через старый эндпоинт /cancel, только из Processing
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.transition(ctx, userID, orderID, domain.ActionCancel, "")
}

// RequestReturn запрос возврата доставленного заказа
func (s *OrderService) RequestReturn(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.transition(ctx, userID, orderID, domain.ActionRequestReturn, "")
}

// transition applies one row of the lifecycle table. ownerID restricts the
// order to its owner; empty means an admin caller.
func (s *OrderService) transition(ctx context.Context, ownerID, orderID string, action domain.Action, target domain.OrderStatus) (*domain.Order, error) {
	if !repository.ValidID(orderID) {
		return nil, ErrInvalidID
	}
	var (
		updated *domain.Order
		from    domain.OrderStatus
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.ownedOrder(ctx, ownerID, orderID)
		if err != nil {
			return err
		}
		tr, err := domain.Next(o.Status, action, target)
		if err != nil {
			return err
		}
		if tr.RestoreStock && stockTaken(o) {
			if err := s.restoreStock(ctx, o.Quantities()); err != nil {
				return err
			}
		}
		from = o.Status
		o.Status = tr.Next
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("order_id", orderID).Str("action", string(action)).Msg("order transition rejected")
		return nil, err
	}
	s.log.Info().Str("order_id", orderID).Str("action", string(action)).Str("from", string(from)).Str("to", string(updated.Status)).Msg("order status changed")
	if from != updated.Status {
		s.publish(ctx, events.OrderStatusChanged, updated)
	}
	return updated, nil
}

// DeleteOrder удаляет заказ без сверки склада
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	if !repository.ValidID(orderID) {
		return ErrInvalidID
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}
	s.log.Info().Str("order_id", orderID).Msg("order removed by admin")
	return nil
}

// GetOrder возвращает заказ по id
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if !repository.ValidID(id) {
		return nil, ErrInvalidID
	}
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx)
}

func (s *OrderService) UserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrderService) ownedOrder(ctx context.Context, ownerID, orderID string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && o.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

// stockTaken reports whether placement or payment already decremented stock for o.
func stockTaken(o *domain.Order) bool {
	return !o.PaymentMethod.IsGateway() || o.Payment
}

func sortedIDs(qty map[string]int64) []string {
	ids := make([]string, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// checkStock verifies every product before any write, so a short item fails the whole operation.
func (s *OrderService) checkStock(ctx context.Context, qty map[string]int64) error {
	for _, id := range sortedIDs(qty) {
		p, err := s.products.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: product %s not found", ErrNotEnoughStock, id)
		}
		if err != nil {
			return err
		}
		if p.Stock < qty[id] {
			return fmt.Errorf("%w: %s has %d, requested %d", ErrNotEnoughStock, p.Name, p.Stock, qty[id])
		}
	}
	return nil
}

func (s *OrderService) takeStock(ctx context.Context, qty map[string]int64) error {
	for _, id := range sortedIDs(qty) {
		if err := s.products.AdjustStock(ctx, id, -qty[id]); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return fmt.Errorf("%w: product %s", ErrNotEnoughStock, id)
			}
			return err
		}
	}
	return nil
}

func (s *OrderService) restoreStock(ctx context.Context, qty map[string]int64) error {
	for _, id := range sortedIDs(qty) {
		err := s.products.AdjustStock(ctx, id, qty[id])
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn().Str("product_id", id).Int64("quantity", qty[id]).Msg("product removed from catalog, stock not restored")
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) clearCart(ctx context.Context, userID string) error {
	err := s.users.SetCart(ctx, userID, domain.Cart{})
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// publish runs after commit; broker failures are logged and never fail the request.
func (s *OrderService) publish(ctx context.Context, t events.Type, o *domain.Order) {
	ev := events.NewOrderEvent(t, o)
	if ev.Email == "" || ev.CustomerName == "" {
		if u, err := s.users.GetByID(ctx, o.UserID); err == nil {
			if ev.Email == "" {
				ev.Email = u.Email
			}
			if ev.CustomerName == "" {
				ev.CustomerName = u.Name
			}
		}
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("order_id", o.ID).Str("type", string(t)).Msg("publish order event")
	}
}
