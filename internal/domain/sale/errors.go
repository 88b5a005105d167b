package sale

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when a requested quantity is not a
	// positive integer.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrEmptyCart is returned when an invoice or submission is requested for
	// a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSubCentPrice is returned when a unit price has fractions of a cent.
	ErrSubCentPrice = errors.New("unit price must be a whole number of cents")
	// ErrSubmissionInProgress is returned when a session is touched while its
	// submission has not settled yet.
	ErrSubmissionInProgress = errors.New("submission in progress")
)

// InsufficientStockError indicates that a requested (or cumulative) quantity
// exceeds the stock snapshot of a product. Shortfall is the remaining headroom:
// how many more units could still have been added.
type InsufficientStockError struct {
	ProductID string
	Shortfall int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: only %d more available", e.ProductID, e.Shortfall)
}

// InvalidDiscountError indicates a unit price that is negative or above the
// product's list price.
type InvalidDiscountError struct {
	ProductID string
	UnitPrice decimal.Decimal
	ListPrice decimal.Decimal
}

func (e *InvalidDiscountError) Error() string {
	return fmt.Sprintf("invalid unit price %s for product %s: must be between 0 and %s",
		e.UnitPrice, e.ProductID, e.ListPrice)
}

// ProductNotFoundError indicates a product that is unknown or out of stock in
// the current catalog snapshot.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// SubmissionFailedError wraps a backend failure during sale submission. The
// cart that was being submitted is left intact.
type SubmissionFailedError struct {
	Err error
}

func (e *SubmissionFailedError) Error() string {
	return "submit sale: " + e.Err.Error()
}

func (e *SubmissionFailedError) Unwrap() error {
	return e.Err
}
