package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the billing API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrConflict indicates a resource already exists (e.g. duplicate page slug).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrDepthExceeded indicates a category placement beyond the configured maximum depth.
type ErrDepthExceeded struct {
	MaxDepth int
}

func (e *ErrDepthExceeded) Error() string {
	return fmt.Sprintf("cannot create subcategory: maximum depth of %d reached", e.MaxDepth)
}

// ErrCycleDetected indicates a category re-parent under its own descendant.
type ErrCycleDetected struct {
	CategoryPath string
	ParentPath   string
}

func (e *ErrCycleDetected) Error() string {
	return fmt.Sprintf("cannot set a child category as parent: %q is under %q", e.ParentPath, e.CategoryPath)
}

// ErrHasChildren indicates a category delete blocked by existing subcategories.
type ErrHasChildren struct {
	CategoryID string
	Children   int
}

func (e *ErrHasChildren) Error() string {
	return fmt.Sprintf("cannot delete category %s: %d subcategories exist", e.CategoryID, e.Children)
}

// ErrPrepaymentExceedsTotal indicates a prepayment larger than the tax-inclusive subtotal.
type ErrPrepaymentExceedsTotal struct {
	PrePayment decimal.Decimal
	Total      decimal.Decimal
}

func (e *ErrPrepaymentExceedsTotal) Error() string {
	return fmt.Sprintf("prepayment %s exceeds invoice total %s", e.PrePayment, e.Total)
}

// ErrInvalidAmount indicates a quantity or price that could not be parsed.
type ErrInvalidAmount struct {
	Field string
	Value string
}

func (e *ErrInvalidAmount) Error() string {
	return fmt.Sprintf("invalid amount for '%s': %q", e.Field, e.Value)
}
