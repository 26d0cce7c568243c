package httpapi

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

type placeOrderReq struct {
	Items   []domain.LineItem `json:"items" binding:"required,min=1,dive"`
	Amount  float64           `json:"amount" binding:"gte=0"`
	Address domain.Address    `json:"address"`
}

func (s *Server) checkout(c *gin.Context, method domain.PaymentMethod) (*service.Checkout, bool) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return nil, false
	}
	res, err := s.orders.PlaceOrder(c.Request.Context(), service.PlaceOrderRequest{
		UserID:         currentUserID(c),
		Items:          req.Items,
		Amount:         req.Amount,
		Address:        req.Address,
		Method:         method,
		Origin:         c.GetHeader("Origin"),
		IdempotencyKey: c.GetHeader(idempotencyHeader),
	})
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return res, true
}

// @Summary Place cash-on-delivery order
// @Tags orders
// @Accept json
// @Produce json
// @Param token header string true "User token"
// @Param Idempotency-Key header string false "Retry key"
// @Param input body placeOrderReq true "Order"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /api/order/place [post]
func (s *Server) placeOrder(c *gin.Context) {
	res, done := s.checkout(c, domain.PaymentCOD)
	if !done {
		return
	}
	ok(c, gin.H{"message": "Order Placed", "orderId": res.Order.ID})
}

// @Summary Place order paid through Stripe Checkout
// @Tags orders
// @Accept json
// @Produce json
// @Param token header string true "User token"
// @Param input body placeOrderReq true "Order"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} errorResponse
// @Router /api/order/stripe [post]
func (s *Server) placeOrderStripe(c *gin.Context) {
	res, done := s.checkout(c, domain.PaymentStripe)
	if !done {
		return
	}
	ok(c, gin.H{"session_url": res.SessionURL, "orderId": res.Order.ID})
}

// @Summary Place order paid through Razorpay
// @Tags orders
// @Accept json
// @Produce json
// @Param token header string true "User token"
// @Param input body placeOrderReq true "Order"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} errorResponse
// @Router /api/order/razorpay [post]
func (s *Server) placeOrderRazorpay(c *gin.Context) {
	res, done := s.checkout(c, domain.PaymentRazorpay)
	if !done {
		return
	}
	ok(c, gin.H{"order": res.Intent, "orderId": res.Order.ID})
}

// flag accepts both JSON booleans and the "true"/"false" strings the
// storefront copies from the redirect query string.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flag(v)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, err := strconv.ParseBool(strings.TrimSpace(str))
	if err != nil {
		return err
	}
	*f = flag(v)
	return nil
}

type verifyStripeReq struct {
	OrderID string `json:"orderId" binding:"required"`
	Success flag   `json:"success"`
}

// @Summary Confirm Stripe payment
// @Description Success marks the order paid and takes stock; failure deletes the unpaid order.
// @Tags orders
// @Accept json
// @Produce json
// @Param token header string true "User token"
// @Param input body verifyStripeReq true "Result"
// @Success 200 {object} map[string]interface{}
// @Failure 402 {object} errorResponse
// @Router /api/order/verifyStripe [post]
func (s *Server) verifyStripe(c *gin.Context) {
	var req verifyStripeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := s.orders.VerifyStripe(c.Request.Context(), currentUserID(c), req.OrderID, bool(req.Success)); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

type verifyRazorpayReq struct {
	RazorpayOrderID string `json:"razorpay_order_id" binding:"required"`
}

// @Summary Confirm Razorpay payment
// @Tags orders
// @Accept json
// @Produce json
// @Param token header string true "User token"
// @Param input body verifyRazorpayReq true "Razorpay order"
// @Success 200 {object} map[string]interface{}
// @Failure 402 {object} errorResponse
// @Router /api/order/verifyRazorpay [post]
func (s *Server) verifyRazorpay(c *gin.Context) {
	var req verifyRazorpayReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := s.orders.VerifyRazorpay(c.Request.Context(), currentUserID(c), req.RazorpayOrderID); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Payment Successful"})
}

// @Summary List all orders
// @Tags orders
// @Produce json
// @Param token header string true "Admin token"
// @Success 200 {object} map[string]interface{}
// @Router /api/order/list [post]
func (s *Server) allOrders(c *gin.Context) {
	list, err := s.orders.ListOrders(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"orders": list})
}

// @Summary List my orders
// @Tags orders
// @Produce json
// @Param token header string true "User token"
// @Success 200 {object} map[string]interface{}
// @Router /api/order/userorders [post]
func (s *Server) userOrders(c *gin.Context) {
	list, err := s.orders.UserOrders(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"orders": list})
}

type updateStatusReq struct {
	OrderID string             `json:"orderId" binding:"required"`
	Status  domain.OrderStatus `json:"status"`
	Action  domain.Action      `json:"action"`
}

// @Summary Change order status
// @Description Without action the status is set directly; approve_cancellation and approve_return restore stock.
// @Tags orders
// @Accept json
// @Produce json
// @Param token header string true "Admin token"
// @Param input body updateStatusReq true "Status change"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} errorResponse
// @Router /api/order/status [post]
func (s *Server) updateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	o, err := s.orders.UpdateStatus(c.Request.Context(), req.OrderID, req.Status, req.Action)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Status Updated", "order": o})
}

// @Summary Delete order
// @Tags orders
// @Produce json
// @Param token header string true "Admin token"
// @Param orderId path string true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/order/remove/{orderId} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.orders.DeleteOrder(c.Request.Context(), c.Param("orderId")); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Order deleted successfully"})
}

type orderIDReq struct {
	OrderID string `json:"orderId" binding:"required"`
}

func (s *Server) customerTransition(c *gin.Context, act func(ctx context.Context, userID, orderID string) (*domain.Order, error), message string) {
	var req orderIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	o, err := act(c.Request.Context(), currentUserID(c), req.OrderID)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"message": message, "order": o})
}

// @Summary Request cancellation (processing orders only)
// @Tags orders
// @Accept json
// @Produce json
// @Param token header string true "User token"
// @Param input body orderIDReq true "Order"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} errorResponse
// @Router /api/order/cancel [post]
func (s *Server) cancelOrder(c *gin.Context) {
	s.customerTransition(c, s.orders.CancelOrder, "Cancellation request submitted successfully")
}

// @Summary Request cancellation
// @Tags orders
// @Accept json
// @Produce json
// @Param token header string true "User token"
// @Param input body orderIDReq true "Order"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} errorResponse
// @Router /api/order/request-cancellation [post]
func (s *Server) requestCancellation(c *gin.Context) {
	s.customerTransition(c, s.orders.RequestCancellation, "Cancellation request submitted successfully")
}

// @Summary Request return of a delivered order
// @Tags orders
// @Accept json
// @Produce json
// @Param token header string true "User token"
// @Param input body orderIDReq true "Order"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} errorResponse
// @Router /api/order/request-return [post]
func (s *Server) requestReturn(c *gin.Context) {
	s.customerTransition(c, s.orders.RequestReturn, "Return request submitted successfully")
}
