package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"storefront/internal/auth"
	"storefront/internal/repository"
)

const (
	tokenHeader     = "token"
	requestIDHeader = "X-Request-ID"
	ctxClaims       = "claims"
)

var validatorsOnce sync.Once

// registerValidators adds the objectid tag to gin's binding validator.
func registerValidators() {
	validatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
				return repository.ValidID(fl.Field().String())
			})
		}
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		c.Next()

		ev := s.log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = s.log.Error()
		}
		ev.Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		s.log.Error().Interface("panic", rec).Str("path", c.Request.URL.Path).Msg("recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Message: "internal error", Code: "internal"})
	})
}

func (s *Server) authenticate(c *gin.Context) (*auth.Claims, bool) {
	raw := c.GetHeader(tokenHeader)
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: "Not Authorized Login Again", Code: "unauthorized"})
		return nil, false
	}
	claims, err := s.users.Authenticate(c.Request.Context(), raw)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	c.Set(ctxClaims, claims)
	return claims, true
}

// authUser пропускает любой действительный токен
func (s *Server) authUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := s.authenticate(c); ok {
			c.Next()
		}
	}
}

// adminAuth требует токен, выпущенный через вход администратора
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := s.authenticate(c)
		if !ok {
			return
		}
		if !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Message: "Not Authorized Login Again", Code: "forbidden"})
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	if v, ok := c.Get(ctxClaims); ok {
		return v.(*auth.Claims).UserID
	}
	return ""
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter token bucket per client address; idle entries expire after ttl.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func newIPLimiter(limit rate.Limit, burst int, ttl time.Duration) *ipLimiter {
	return &ipLimiter{visitors: make(map[string]*visitor), limit: limit, burst: burst, ttl: ttl, now: time.Now}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, k)
		}
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Message: "rate limit exceeded", Code: "rate_limited"})
			return
		}
		c.Next()
	}
}
