package shared

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationError indicates malformed or rejected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError indicates a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidTransitionError indicates an illegal order status change, including
// any attempt to mutate an order in a terminal status.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("order in status %s can no longer be modified", e.From)
	}
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// InsufficientStockError indicates a sale would drive quantity negative.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Location  string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s at %s: requested %d, available %d",
		e.ProductID, e.Location, e.Requested, e.Available)
}

// ExceedsPaymentError indicates a payment would exceed the order total.
type ExceedsPaymentError struct {
	Paid   decimal.Decimal
	Amount decimal.Decimal
	Total  decimal.Decimal
}

func (e *ExceedsPaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds order total %s (already paid %s)",
		e.Amount.StringFixed(2), e.Total.StringFixed(2), e.Paid.StringFixed(2))
}

// ConcurrencyConflictError indicates an optimistic write lost the race.
type ConcurrencyConflictError struct {
	Entity string
	ID     string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s %s", e.Entity, e.ID)
}
