package cart

import (
	"context"
	"errors"
	"fmt"
)

var (
	// -- Validation & Input --
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrProductRequired    = errors.New("product id is required")
	ErrCouponCodeRequired = errors.New("coupon code is required")

	// -- Resource State --
	ErrDataUnavailable = errors.New("cart functionality is unavailable")

	// -- Wiring --
	ErrNoChangeFeed = errors.New("cart change feed not configured")
)

// PersistenceError wraps a failed read or write against the cart store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cart: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// InvalidCouponError means the server-side check rejected the code.
type InvalidCouponError struct {
	Reason string
}

func (e *InvalidCouponError) Error() string {
	return e.Reason
}

// MinimumPurchaseNotMetError means the cart subtotal is below the coupon's
// minimum purchase amount.
type MinimumPurchaseNotMetError struct {
	Required float64
	Actual   float64
}

func (e *MinimumPurchaseNotMetError) Error() string {
	return fmt.Sprintf("minimum purchase of %.2f required to use this coupon (cart subtotal %.2f)", e.Required, e.Actual)
}

// unavailable marks a failed read as ErrDataUnavailable. A canceled or timed
// out read is returned as is.
func unavailable(err error) error {
	if errors.Is(err, ErrDataUnavailable) || isContextErr(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDataUnavailable, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
