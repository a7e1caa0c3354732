package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced resource does not exist for this owner.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input rejected before any write.
	ErrValidation = errors.New("validation failed")
)

// ValidationError rejects malformed input. It is always raised before any
// ledger write, so a ValidationError never leaves partial state behind.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is allows errors.Is(err, ErrValidation) checks against the sentinel.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing customer/store/account/product/stock row.
type NotFoundError struct {
	Entity string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError builds a NotFoundError for the given entity and key.
func NewNotFoundError(entity string, key any) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

// InsufficientStockError fails a transition into an effect-bearing status when
// a store does not hold enough stock for a line item.
type InsufficientStockError struct {
	ProductNo int64
	Available float64
	Required  float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %.2f, required %.2f", e.ProductNo, e.Available, e.Required)
}

// ConsistencyError records a ledger sequence that failed part-way through
// while no multi-document transaction was available. The touched-ledger list
// tells operators which balances need the recalculation pass or manual
// reconciliation.
type ConsistencyError struct {
	SaleNo  string
	Touched []string
	Err     error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("sale %s: partial ledger update (touched: %v): %v", e.SaleNo, e.Touched, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }
