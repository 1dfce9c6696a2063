package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrOrderCreationFailed = errors.New("order creation failed")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidOrderStatus  = errors.New("invalid order status")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
)

// ProductError ties ErrProductNotFound or ErrInsufficientStock to the
// product that caused it.
type ProductError struct {
	ProductID string
	Err       error
}

func (e *ProductError) Error() string {
	switch {
	case errors.Is(e.Err, ErrProductNotFound):
		return fmt.Sprintf("Product %s not found", e.ProductID)
	case errors.Is(e.Err, ErrInsufficientStock):
		return fmt.Sprintf("Not enough stock for product %s", e.ProductID)
	}
	return fmt.Sprintf("product %s: %v", e.ProductID, e.Err)
}

func (e *ProductError) Unwrap() error { return e.Err }

func productError(id string, err error) error {
	return &ProductError{ProductID: id, Err: err}
}
