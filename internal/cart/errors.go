package cart

import (
	"errors"
	"fmt"
)

// Alert texts shown to the user on write-path failures.
const (
	UpdateAlert   = "Failed to update quantity. Please try again."
	RemoveAlert   = "Failed to remove item. Please try again."
	CheckoutAlert = "Checkout failed. Please try again."
)

// ErrBusy is returned when a mutation targets an item that already has one in flight.
var ErrBusy = errors.New("cart item update already in progress")

// FetchError reports a failed cart read. Callers reset to an empty cart rather
// than alerting.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("failed to fetch cart: %v", e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// UpdateError reports a failed quantity change. The cart is unchanged.
type UpdateError struct {
	ProductID string
	Quantity  int
	Err       error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("failed to set %s quantity to %d: %v", e.ProductID, e.Quantity, e.Err)
}
func (e *UpdateError) Unwrap() error { return e.Err }
func (e *UpdateError) Alert() string { return UpdateAlert }

// RemoveError reports a failed removal. The cart is unchanged.
type RemoveError struct {
	ProductID string
	Err       error
}

func (e *RemoveError) Error() string {
	return fmt.Sprintf("failed to remove %s: %v", e.ProductID, e.Err)
}
func (e *RemoveError) Unwrap() error { return e.Err }
func (e *RemoveError) Alert() string { return RemoveAlert }

// CheckoutError reports a failed checkout. The cart is not cleared.
type CheckoutError struct {
	Err error
}

func (e *CheckoutError) Error() string { return fmt.Sprintf("checkout failed: %v", e.Err) }
func (e *CheckoutError) Unwrap() error { return e.Err }
func (e *CheckoutError) Alert() string { return CheckoutAlert }
