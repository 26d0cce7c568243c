package service

import (
	"errors"

	"storefront/internal/domain"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidID       = errors.New("invalid id format")
	ErrNotEnoughStock  = errors.New("some items are out of stock")
	ErrInvalidState    = domain.ErrInvalidTransition
	ErrAmountMismatch  = errors.New("amount does not match order items")
	ErrPaymentFailed   = errors.New("payment was not completed")
	ErrGatewayDisabled = errors.New("payment method unavailable")
	ErrDuplicate       = errors.New("duplicate request")

	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrBanned             = errors.New("account is banned")
)
