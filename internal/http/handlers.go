package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"

	"storefront/internal/service"
)

// Services набор сервисов, которые обслуживает HTTP слой
type Services struct {
	Products *service.ProductService
	Orders   *service.OrderService
	Users    *service.UserService
	Reviews  *service.ReviewService
	Cart     *service.CartService
}

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	orders   *service.OrderService
	users    *service.UserService
	reviews  *service.ReviewService
	cart     *service.CartService
	log      zerolog.Logger
	limiter  *ipLimiter
}

func NewServer(svc Services, log zerolog.Logger) *Server {
	registerValidators()
	r := gin.New()
	s := &Server{
		engine:   r,
		products: svc.Products,
		orders:   svc.Orders,
		users:    svc.Users,
		reviews:  svc.Reviews,
		cart:     svc.Cart,
		log:      log.With().Str("component", "http").Logger(),
		limiter:  newIPLimiter(rate.Limit(1), 3, 3*time.Minute),
	}
	r.Use(s.requestLogger(), s.recovery())
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/health", s.health)

	api := s.engine.Group("/api")
	user, admin := s.authUser(), s.adminAuth()

	users := api.Group("/user")
	{
		users.POST("/register", s.rateLimit(), s.register)
		users.POST("/login", s.rateLimit(), s.login)
		users.POST("/admin", s.rateLimit(), s.adminLogin)
		users.GET("/all", admin, s.listUsers)
		users.POST("/delete", admin, s.deleteUser)
		users.POST("/ban", admin, s.banUser)
	}

	products := api.Group("/product")
	{
		products.POST("/add", admin, s.addProduct)
		products.POST("/update", admin, s.updateProduct)
		products.POST("/remove", admin, s.removeProduct)
		products.POST("/updateStock", admin, s.updateStock)
		products.POST("/single", s.singleProduct)
		products.GET("/list", s.listProducts)
	}

	orders := api.Group("/order")
	{
		orders.POST("/list", admin, s.allOrders)
		orders.POST("/status", admin, s.updateStatus)
		orders.DELETE("/remove/:orderId", admin, s.deleteOrder)

		orders.POST("/place", user, s.placeOrder)
		orders.POST("/stripe", user, s.placeOrderStripe)
		orders.POST("/razorpay", user, s.placeOrderRazorpay)
		orders.POST("/verifyStripe", user, s.verifyStripe)
		orders.POST("/verifyRazorpay", user, s.verifyRazorpay)

		orders.POST("/userorders", user, s.userOrders)
		orders.POST("/cancel", user, s.cancelOrder)
		orders.POST("/request-cancellation", user, s.requestCancellation)
		orders.POST("/return", user, s.requestReturn)
		orders.POST("/request-return", user, s.requestReturn)
	}

	reviews := api.Group("/review")
	{
		reviews.POST("/add", user, s.addReview)
		reviews.POST("/product", s.productReviews)
		reviews.GET("/all", admin, s.allReviews)
		reviews.POST("/delete", admin, s.deleteReview)
	}

	cart := api.Group("/cart")
	{
		cart.POST("/add", user, s.addToCart)
		cart.POST("/update", user, s.updateCart)
		cart.POST("/get", user, s.getCart)
	}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "storefront",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
