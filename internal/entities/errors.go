package entities

import "errors"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrInvalidOrder    = errors.New("invalid order data")
	ErrUnauthorized    = errors.New("operation not allowed for this user")
)
