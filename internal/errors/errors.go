package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if stderrors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// InvalidTransitionError is returned when an order status change is not in
// the transition table. It is never retried.
type InvalidTransitionError struct {
	OrderID int64
	From    string
	To      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %d: invalid transition from %s to %s", e.OrderID, e.From, e.To)
}

func NewInvalidTransitionError(orderID int64, from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{OrderID: orderID, From: from, To: to}
}

func IsInvalidTransitionError(err error) (*InvalidTransitionError, bool) {
	var ite *InvalidTransitionError
	if stderrors.As(err, &ite) {
		return ite, true
	}
	return nil, false
}

// InsufficientStockError names the ingredient whose stock would have gone
// negative so callers can explain which item is unavailable.
type InsufficientStockError struct {
	IngredientID   int64
	IngredientName string
	Available      decimal.Decimal
	Requested      decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for ingredient %d (%s): available %s, requested %s",
		e.IngredientID, e.IngredientName, e.Available.String(), e.Requested.String())
}

func NewInsufficientStockError(ingredientID int64, name string, available, requested decimal.Decimal) *InsufficientStockError {
	return &InsufficientStockError{
		IngredientID:   ingredientID,
		IngredientName: name,
		Available:      available,
		Requested:      requested,
	}
}

func IsInsufficientStockError(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if stderrors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}

// ConcurrencyConflictError means the store aborted the transaction because of
// a serialization conflict. The whole operation is safe to retry.
type ConcurrencyConflictError struct {
	Message string
	Cause   error
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ConcurrencyConflictError) Unwrap() error {
	return e.Cause
}

func NewConcurrencyConflictError(message string, cause error) *ConcurrencyConflictError {
	return &ConcurrencyConflictError{Message: message, Cause: cause}
}

func IsConcurrencyConflictError(err error) (*ConcurrencyConflictError, bool) {
	var cce *ConcurrencyConflictError
	if stderrors.As(err, &cce) {
		return cce, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
