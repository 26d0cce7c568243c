package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"storefront/internal/auth"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"
)

type testEnv struct {
	srv        *Server
	adminToken string
	userToken  string
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := repository.NewMemoryStore()
	users := repository.NewMemoryUsers(store)
	tx := repository.NewMemoryTx(store)
	log := zerolog.Nop()

	usersSvc := service.NewUserService(users, auth.NewHasher(bcrypt.MinCost), auth.NewTokens("test-secret", time.Hour), log)
	ordersSvc := service.NewOrderService(store, repository.NewMemoryOrders(store), users, tx, service.OrderOptions{
		Pricing: payment.Pricing{Currency: "inr", DeliveryCharge: decimal.NewFromInt(10)},
		Log:     log,
	})
	srv := NewServer(Services{
		Products: service.NewProductService(store, log),
		Orders:   ordersSvc,
		Users:    usersSvc,
		Reviews:  service.NewReviewService(repository.NewMemoryReviews(store), store, users, log),
		Cart:     service.NewCartService(users, store, tx),
	}, log)

	if err := usersSvc.EnsureAdmin(ctx, "Admin", "admin@shop.example", "admin-pass"); err != nil {
		t.Fatal(err)
	}
	adminToken, err := usersSvc.AdminLogin(ctx, "admin@shop.example", "admin-pass")
	if err != nil {
		t.Fatal(err)
	}
	userToken, err := usersSvc.Register(ctx, "Ann", "ann@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{srv: srv, adminToken: adminToken, userToken: userToken}
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func (e *testEnv) addProduct(t *testing.T, stock int64) string {
	t.Helper()
	w := doJSON(t, e.srv, http.MethodPost, "/api/product/add", e.adminToken, map[string]any{
		"name": "Linen Shirt", "category": "Men", "subCategory": "Topwear", "price": 100, "stock": stock, "sizes": []string{"M", "L"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add product %v: %s", w.Code, w.Body.String())
	}
	return decode(t, w)["product"].(map[string]any)["_id"].(string)
}

func (e *testEnv) stock(t *testing.T, id string) float64 {
	t.Helper()
	w := doJSON(t, e.srv, http.MethodPost, "/api/product/single", "", map[string]any{"productId": id})
	if w.Code != http.StatusOK {
		t.Fatalf("single %v", w.Code)
	}
	return decode(t, w)["product"].(map[string]any)["stock"].(float64)
}

func orderBody(productID string, qty int) map[string]any {
	return map[string]any{
		"items":   []map[string]any{{"_id": productID, "name": "Linen Shirt", "quantity": qty, "price": 100, "size": "M"}},
		"amount":  100*qty + 10,
		"address": map[string]any{"firstName": "Ann", "email": "ann@example.com", "city": "Pune"},
	}
}

func TestProductFlow(t *testing.T) {
	e := setupServer(t)
	id := e.addProduct(t, 5)

	w := doJSON(t, e.srv, http.MethodPost, "/api/product/update", e.adminToken, map[string]any{
		"id": id, "name": "Linen Shirt+", "category": "Men", "price": 120, "stock": 7,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update code %v: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, e.srv, http.MethodGet, "/api/product/list?q=linen&category=men", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list code %v", w.Code)
	}
	if got := decode(t, w)["products"].([]any); len(got) != 1 {
		t.Fatalf("expected 1 product, got %d", len(got))
	}

	w = doJSON(t, e.srv, http.MethodPost, "/api/product/updateStock", e.adminToken, map[string]any{"productId": id, "stock": 0})
	if w.Code != http.StatusOK {
		t.Fatalf("updateStock code %v: %s", w.Code, w.Body.String())
	}
	if got := e.stock(t, id); got != 0 {
		t.Fatalf("expected stock 0, got %v", got)
	}

	w = doJSON(t, e.srv, http.MethodPost, "/api/product/remove", e.adminToken, map[string]any{"id": id})
	if w.Code != http.StatusOK {
		t.Fatalf("remove code %v", w.Code)
	}
	w = doJSON(t, e.srv, http.MethodPost, "/api/product/single", "", map[string]any{"productId": id})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after remove, got %v", w.Code)
	}
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	e := setupServer(t)
	body := map[string]any{"name": "X", "category": "Men", "price": 1}

	w := doJSON(t, e.srv, http.MethodPost, "/api/product/add", "", body)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %v", w.Code)
	}
	w = doJSON(t, e.srv, http.MethodPost, "/api/product/add", e.userToken, body)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with user token, got %v", w.Code)
	}
	w = doJSON(t, e.srv, http.MethodPost, "/api/order/list", "garbage", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %v", w.Code)
	}
	if resp := decode(t, w); resp["success"] != false || resp["code"] != "unauthorized" {
		t.Fatalf("unexpected envelope %v", resp)
	}
}

func TestOrderFlow_CODCancellation(t *testing.T) {
	e := setupServer(t)
	id := e.addProduct(t, 5)

	w := doJSON(t, e.srv, http.MethodPost, "/api/order/place", e.userToken, orderBody(id, 2))
	if w.Code != http.StatusOK {
		t.Fatalf("place code %v: %s", w.Code, w.Body.String())
	}
	orderID := decode(t, w)["orderId"].(string)
	if got := e.stock(t, id); got != 3 {
		t.Fatalf("expected stock 3, got %v", got)
	}

	w = doJSON(t, e.srv, http.MethodPost, "/api/order/userorders", e.userToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("userorders code %v", w.Code)
	}
	orders := decode(t, w)["orders"].([]any)
	if len(orders) != 1 || orders[0].(map[string]any)["status"] != "Order Placed" {
		t.Fatalf("unexpected orders %v", orders)
	}

	// approve before request is rejected and leaves status unchanged
	w = doJSON(t, e.srv, http.MethodPost, "/api/order/status", e.adminToken, map[string]any{"orderId": orderID, "action": "approve_cancellation"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", w.Code)
	}

	w = doJSON(t, e.srv, http.MethodPost, "/api/order/request-cancellation", e.userToken, map[string]any{"orderId": orderID})
	if w.Code != http.StatusOK {
		t.Fatalf("request-cancellation code %v: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, e.srv, http.MethodPost, "/api/order/status", e.adminToken, map[string]any{"orderId": orderID, "action": "approve_cancellation"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve code %v: %s", w.Code, w.Body.String())
	}
	if st := decode(t, w)["order"].(map[string]any)["status"]; st != "Cancelled" {
		t.Fatalf("expected Cancelled, got %v", st)
	}
	if got := e.stock(t, id); got != 5 {
		t.Fatalf("expected stock restored to 5, got %v", got)
	}

	w = doJSON(t, e.srv, http.MethodPost, "/api/order/list", e.adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list code %v", w.Code)
	}
	if all := decode(t, w)["orders"].([]any); len(all) != 1 {
		t.Fatalf("expected 1 order, got %v", all)
	}
}

func TestOrderFlow_Rejections(t *testing.T) {
	e := setupServer(t)
	id := e.addProduct(t, 1)

	w := doJSON(t, e.srv, http.MethodPost, "/api/order/place", e.userToken, orderBody(id, 2))
	if w.Code != http.StatusBadRequest || decode(t, w)["code"] != "out_of_stock" {
		t.Fatalf("expected out_of_stock, got %v %s", w.Code, w.Body.String())
	}

	bad := orderBody(id, 1)
	bad["amount"] = 1
	w = doJSON(t, e.srv, http.MethodPost, "/api/order/place", e.userToken, bad)
	if w.Code != http.StatusBadRequest || decode(t, w)["code"] != "amount_mismatch" {
		t.Fatalf("expected amount_mismatch, got %v %s", w.Code, w.Body.String())
	}

	w = doJSON(t, e.srv, http.MethodPost, "/api/order/place", e.userToken, orderBody("not-an-id", 1))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed product id, got %v", w.Code)
	}

	w = doJSON(t, e.srv, http.MethodPost, "/api/order/stripe", e.userToken, orderBody(id, 1))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without stripe, got %v", w.Code)
	}

	w = doJSON(t, e.srv, http.MethodDelete, "/api/order/remove/xyz", e.adminToken, nil)
	if w.Code != http.StatusBadRequest || decode(t, w)["code"] != "invalid_id" {
		t.Fatalf("expected invalid_id, got %v", w.Code)
	}
}

func TestOrderFlow_IdempotencyKey(t *testing.T) {
	e := setupServer(t)
	id := e.addProduct(t, 5)

	send := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(orderBody(id, 1))
		req := httptest.NewRequest(http.MethodPost, "/api/order/place", &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(tokenHeader, e.userToken)
		req.Header.Set(idempotencyHeader, "checkout-1")
		w := httptest.NewRecorder()
		e.srv.Engine().ServeHTTP(w, req)
		return w
	}
	if w := send(); w.Code != http.StatusOK {
		t.Fatalf("first attempt %v", w.Code)
	}
	if w := send(); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on retry, got %v", w.Code)
	}
	if got := e.stock(t, id); got != 4 {
		t.Fatalf("expected one decrement, got stock %v", got)
	}
}

func TestUserFlow(t *testing.T) {
	e := setupServer(t)

	w := doJSON(t, e.srv, http.MethodPost, "/api/user/register", "", map[string]any{"name": "Bob", "email": "bob@example.com", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("register %v: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, e.srv, http.MethodPost, "/api/user/register", "", map[string]any{"name": "Bob", "email": "bob@example.com", "password": "secret1"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %v", w.Code)
	}

	w = doJSON(t, e.srv, http.MethodGet, "/api/user/all", e.adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list users %v", w.Code)
	}
	var bobID string
	for _, u := range decode(t, w)["users"].([]any) {
		m := u.(map[string]any)
		if _, leaked := m["password"]; leaked {
			t.Fatalf("password field must not be exposed")
		}
		if m["email"] == "bob@example.com" {
			bobID = m["_id"].(string)
		}
	}

	w = doJSON(t, e.srv, http.MethodPost, "/api/user/ban", e.adminToken, map[string]any{"userId": bobID})
	if w.Code != http.StatusOK {
		t.Fatalf("ban %v", w.Code)
	}
	w = doJSON(t, e.srv, http.MethodPost, "/api/user/login", "", map[string]any{"email": "bob@example.com", "password": "secret1"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected banned login 403, got %v", w.Code)
	}
}

func TestReviewAndCartFlow(t *testing.T) {
	e := setupServer(t)
	id := e.addProduct(t, 5)

	w := doJSON(t, e.srv, http.MethodPost, "/api/review/add", e.userToken, map[string]any{"productId": id, "rating": 9})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for rating 9, got %v", w.Code)
	}
	w = doJSON(t, e.srv, http.MethodPost, "/api/review/add", e.userToken, map[string]any{"productId": id, "rating": 4, "comment": "good"})
	if w.Code != http.StatusOK {
		t.Fatalf("add review %v: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, e.srv, http.MethodPost, "/api/review/product", "", map[string]any{"productId": id})
	if got := decode(t, w)["reviews"].([]any); len(got) != 1 {
		t.Fatalf("expected 1 review, got %d", len(got))
	}

	w = doJSON(t, e.srv, http.MethodPost, "/api/cart/add", e.userToken, map[string]any{"itemId": id, "size": "M"})
	if w.Code != http.StatusOK {
		t.Fatalf("cart add %v: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, e.srv, http.MethodPost, "/api/order/place", e.userToken, orderBody(id, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("place %v", w.Code)
	}
	w = doJSON(t, e.srv, http.MethodPost, "/api/cart/get", e.userToken, nil)
	if got := decode(t, w)["cartData"].(map[string]any); len(got) != 0 {
		t.Fatalf("expected cart cleared after COD order, got %v", got)
	}
}

func TestLoginRateLimit(t *testing.T) {
	e := setupServer(t)
	e.srv.limiter = newIPLimiter(rate.Limit(1), 3, time.Minute)
	now := time.Now()
	e.srv.limiter.now = func() time.Time { return now }

	var last int
	for i := 0; i < 4; i++ {
		w := doJSON(t, e.srv, http.MethodPost, "/api/user/login", "", map[string]any{"email": "ann@example.com", "password": "secret1"})
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %v", last)
	}
}

func TestHealth(t *testing.T) {
	e := setupServer(t)
	w := doJSON(t, e.srv, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "ok" {
		t.Fatalf("health %v", w.Code)
	}
}

func TestFlagUnmarshal(t *testing.T) {
	for raw, want := range map[string]bool{`true`: true, `"true"`: true, `"false"`: false, `false`: false} {
		var f flag
		if err := json.Unmarshal([]byte(raw), &f); err != nil || bool(f) != want {
			t.Fatalf("%s: got %v err %v", raw, f, err)
		}
	}
	var f flag
	if err := json.Unmarshal([]byte(`"maybe"`), &f); err == nil {
		t.Fatalf("expected error for non-boolean string")
	}
}
