package purchase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrDuplicateReference is returned when a supplier reference was already
// recorded.
var ErrDuplicateReference = errors.New("purchase reference already recorded")

// Purchase is a stock receipt from a supplier.
type Purchase struct {
	ID           string
	Reference    string
	ProductName  string
	Category     string
	Quantity     int
	PricePerUnit decimal.Decimal
	TotalCost    decimal.Decimal
	CreatedAt    time.Time
}

// InvalidFieldError reports the first rejected field of a purchase request.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Repository persists purchases.
type Repository interface {
	// Record stores p and adds its quantity to the product named
	// p.ProductName, creating the product when it does not exist yet.
	Record(ctx context.Context, p *Purchase) error
}

// RecordRequest is the input for recording a purchase.
type RecordRequest struct {
	// Reference is an optional supplier document number.
	Reference    string
	ProductName  string
	Category     string
	Quantity     int
	PricePerUnit decimal.Decimal
}

func (r *RecordRequest) validate() error {
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.Category = strings.TrimSpace(r.Category)
	r.Reference = strings.TrimSpace(r.Reference)

	switch {
	case r.ProductName == "":
		return &InvalidFieldError{Field: "product_name", Reason: "required"}
	case r.Category == "":
		return &InvalidFieldError{Field: "category", Reason: "required"}
	case r.Quantity <= 0:
		return &InvalidFieldError{Field: "quantity", Reason: "must be greater than 0"}
	case !r.PricePerUnit.IsPositive():
		return &InvalidFieldError{Field: "price_per_unit", Reason: "must be greater than 0"}
	case !r.PricePerUnit.Equal(r.PricePerUnit.Round(2)):
		return &InvalidFieldError{Field: "price_per_unit", Reason: "must be a whole number of cents"}
	}
	return nil
}
