package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInvalid is returned when a product update carries an empty name or
	// category, a negative quantity or a negative price.
	ErrInvalid = errors.New("invalid product")
	// ErrExists is returned when another product already has the name.
	ErrExists = errors.New("a product with this name already exists")
	// ErrInUse is returned when deleting a product that past sales reference.
	ErrInUse = errors.New("product is referenced by sales")
)

// Product is a point-in-time view of an inventory record. Quantity reflects
// stock at the time of the query and is never treated as a lock.
type Product struct {
	ID       string
	Name     string
	Category string
	Quantity int
	Price    decimal.Decimal
}

// Validate checks the fields an inventory edit may change. Prices are whole
// cents.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Category) == "" {
		return ErrInvalid
	}
	if p.Quantity < 0 || p.Price.IsNegative() || !p.Price.Equal(p.Price.Round(2)) {
		return ErrInvalid
	}
	return nil
}

// Repository defines the inventory operations used by the application.
type Repository interface {
	// ListAvailable returns products with stock, ordered by name.
	ListAvailable(ctx context.Context) ([]Product, error)
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
}
