package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"
)

// errorResponse конверт ответа с ошибкой
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// order matters: the first match wins
var errorMappings = []errorMapping{
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{service.ErrInvalidID, http.StatusBadRequest, "invalid_id"},
	{service.ErrAmountMismatch, http.StatusBadRequest, "amount_mismatch"},
	{domain.ErrUnknownStatus, http.StatusBadRequest, "invalid_input"},
	{domain.ErrUnknownAction, http.StatusBadRequest, "invalid_input"},
	{service.ErrNotEnoughStock, http.StatusBadRequest, "out_of_stock"},
	{repository.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrInvalidState, http.StatusConflict, "invalid_transition"},
	{service.ErrDuplicate, http.StatusConflict, "duplicate_request"},
	{service.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
	{service.ErrBanned, http.StatusForbidden, "banned"},
	{service.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed"},
	{service.ErrGatewayDisabled, http.StatusServiceUnavailable, "gateway_unavailable"},
	{payment.ErrNotConfigured, http.StatusServiceUnavailable, "gateway_unavailable"},
	{payment.ErrGateway, http.StatusBadGateway, "gateway_error"},
}

func mapErrorToStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := mapErrorToStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Message: msg, Code: code})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Message: "invalid request: " + err.Error(), Code: "invalid_input"})
}

// ok пишет успешный ответ; поля payload добавляются к success=true
func ok(c *gin.Context, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	c.JSON(http.StatusOK, payload)
}
