package sale

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the layout of Invoice.Date.
const DateLayout = "02/01/2006"

// Customer holds the optional buyer details printed on invoices and stored
// with the sale header. Empty fields are omitted.
type Customer struct {
	Name  string
	Phone string
}

func (c Customer) normalize() Customer {
	return Customer{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
	}
}

// InvoiceLine is a display copy of a cart line.
type InvoiceLine struct {
	ProductName string
	Category    string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Invoice is an immutable snapshot of a cart. It shares no state with the
// cart it was generated from.
type Invoice struct {
	Number     string
	IssuedAt   time.Time
	Date       string
	Customer   Customer
	Lines      []InvoiceLine
	GrandTotal decimal.Decimal
}

// InvoiceIssuer generates invoices with numbers derived from its clock.
// Numbers strictly increase within one issuer, even when the clock stalls or
// goes backwards; they are not unique across processes.
type InvoiceIssuer struct {
	now  func() time.Time
	last atomic.Int64
}

// NewInvoiceIssuer creates an issuer reading time from now. A nil now uses
// time.Now.
func NewInvoiceIssuer(now func() time.Time) *InvoiceIssuer {
	if now == nil {
		now = time.Now
	}
	return &InvoiceIssuer{now: now}
}

// Issue snapshots cart into a new Invoice. It returns ErrEmptyCart when the
// cart has no lines and does not modify the cart.
func (is *InvoiceIssuer) Issue(cart *Cart, customer Customer) (*Invoice, error) {
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	issuedAt := is.now()
	inv := &Invoice{
		Number:     "INV-" + strconv.FormatInt(is.nextSeq(issuedAt), 10),
		IssuedAt:   issuedAt,
		Date:       issuedAt.Format(DateLayout),
		Customer:   customer.normalize(),
		Lines:      make([]InvoiceLine, 0, cart.Len()),
		GrandTotal: decimal.Zero,
	}
	for _, l := range cart.lines {
		inv.Lines = append(inv.Lines, InvoiceLine{
			ProductName: l.ProductName,
			Category:    l.Category,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
		})
		inv.GrandTotal = inv.GrandTotal.Add(l.Total)
	}
	return inv, nil
}

// nextSeq returns the millisecond timestamp of t, bumped past the previously
// issued value when needed.
func (is *InvoiceIssuer) nextSeq(t time.Time) int64 {
	ms := t.UnixMilli()
	for {
		last := is.last.Load()
		next := max(ms, last+1)
		if is.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
