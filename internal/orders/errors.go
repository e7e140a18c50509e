package orders

import "errors"

var (
	ErrEmptyItems         = errors.New("items are required")
	ErrInvalidQty         = errors.New("quantity must be at least 1")
	ErrMissingCustomer    = errors.New("customer id is required")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product not available")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidStatus      = errors.New("invalid order status")
)
