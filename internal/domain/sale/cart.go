// Package sale implements the sale-entry engine: cart consolidation, invoice
// generation and submission of a finished cart to the inventory backend.
package sale

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/fitstock/internal/domain/product"
)

// Line is one consolidated commitment to sell a product within a cart.
//
// ProductName, Category, ListPrice and AvailableStock are snapshots taken
// from the product when the line was last added to. Total always equals
// Quantity * UnitPrice.
type Line struct {
	ID             int64
	ProductID      string
	ProductName    string
	Category       string
	Quantity       int
	ListPrice      decimal.Decimal
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal
	AvailableStock int
}

// Cart accumulates sale lines, at most one per product. The zero value is an
// empty cart ready to use. A Cart is not safe for concurrent use; see Session.
type Cart struct {
	lines  []Line
	index  map[string]int // product ID -> position in lines
	nextID int64
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// AddOrMerge adds quantity units of p to the cart. When a line for p already
// exists the quantities are summed and the line takes the new unit price;
// otherwise a new line is appended. A null unitPrice defaults to the
// product's list price. Prices must be whole cents.
//
// All checks run before any mutation: on error the cart is unchanged.
func (c *Cart) AddOrMerge(p product.Product, quantity int, unitPrice decimal.NullDecimal) (Line, error) {
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}

	price := p.Price
	if unitPrice.Valid {
		price = unitPrice.Decimal
	}
	if price.IsNegative() || price.GreaterThan(p.Price) {
		return Line{}, &InvalidDiscountError{
			ProductID: p.ID,
			UnitPrice: price,
			ListPrice: p.Price,
		}
	}

	if !price.Equal(price.Round(2)) {
		return Line{}, ErrSubCentPrice
	}

	stock := max(p.Quantity, 0)

	if i, ok := c.index[p.ID]; ok {
		existing := &c.lines[i]
		headroom := max(stock-existing.Quantity, 0)
		if quantity > headroom {
			return Line{}, &InsufficientStockError{
				ProductID: p.ID,
				Shortfall: headroom,
			}
		}

		merged := existing.Quantity + quantity
		existing.Quantity = merged
		existing.UnitPrice = price
		existing.ListPrice = p.Price
		existing.AvailableStock = stock
		existing.Total = lineTotal(merged, price)
		return *existing, nil
	}

	if quantity > stock {
		return Line{}, &InsufficientStockError{
			ProductID: p.ID,
			Shortfall: stock,
		}
	}

	c.nextID++
	line := Line{
		ID:             c.nextID,
		ProductID:      p.ID,
		ProductName:    p.Name,
		Category:       p.Category,
		Quantity:       quantity,
		ListPrice:      p.Price,
		UnitPrice:      price,
		Total:          lineTotal(quantity, price),
		AvailableStock: stock,
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	c.index[p.ID] = len(c.lines)
	c.lines = append(c.lines, line)
	return line, nil
}

// Remove deletes the line with the given ID and reports whether it existed.
func (c *Cart) Remove(lineID int64) bool {
	i := slices.IndexFunc(c.lines, func(l Line) bool { return l.ID == lineID })
	if i < 0 {
		return false
	}

	delete(c.index, c.lines[i].ProductID)
	c.lines = slices.Delete(c.lines, i, i+1)
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].ProductID] = j
	}
	return true
}

// Total returns the sum of all line totals, zero for an empty cart.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Total)
	}
	return sum
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	return slices.Clone(c.lines)
}

// Line returns the line for the given product, if any.
func (c *Cart) Line(productID string) (Line, bool) {
	i, ok := c.index[productID]
	if !ok {
		return Line{}, false
	}
	return c.lines[i], true
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Clear drops every line. Line IDs keep increasing across clears.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = nil
}

func lineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
