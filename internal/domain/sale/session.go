package sale

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/fitstock/internal/domain/product"
)

// Session is one sale-entry session: a cart plus the submission state.
//
// While a submission is in flight every other operation on the session fails
// with ErrSubmissionInProgress. A successful submission clears the cart; a
// failed one leaves it exactly as it was so the sale can be resubmitted.
type Session struct {
	svc *Service

	mu         sync.Mutex
	cart       *Cart
	submitting bool

	lastActive atomic.Int64
}

// AddProduct looks productID up in a fresh catalog snapshot and adds it to
// the cart (see Cart.AddOrMerge).
func (s *Session) AddProduct(ctx context.Context, productID string, quantity int, unitPrice decimal.NullDecimal) (Line, error) {
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	if s.busy() {
		return Line{}, ErrSubmissionInProgress
	}

	products, err := s.svc.AvailableProducts(ctx)
	if err != nil {
		return Line{}, err
	}
	for _, p := range products {
		if p.ID == productID {
			return s.Add(p, quantity, unitPrice)
		}
	}
	return Line{}, &ProductNotFoundError{ProductID: productID}
}

// Add adds quantity units of the product snapshot p to the cart.
func (s *Session) Add(p product.Product, quantity int, unitPrice decimal.NullDecimal) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.submitting {
		return Line{}, ErrSubmissionInProgress
	}
	return s.cart.AddOrMerge(p, quantity, unitPrice)
}

// Remove removes a line and reports whether it existed.
func (s *Session) Remove(lineID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.submitting {
		return false, ErrSubmissionInProgress
	}
	return s.cart.Remove(lineID), nil
}

// Lines returns a copy of the cart lines.
func (s *Session) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

// Total returns the cart total.
func (s *Session) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total()
}

// Invoice generates an invoice for the current cart without changing it.
func (s *Session) Invoice(ctx context.Context, customer Customer) (*Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.submitting {
		return nil, ErrSubmissionInProgress
	}
	inv, err := s.svc.issuer.Issue(s.cart, customer)
	if err != nil {
		return nil, err
	}
	s.svc.invoicesIssued.Add(ctx, 1)
	return inv, nil
}

// Submit writes the cart to the backend as one sale and returns the sale ID.
// The cart is cleared only when the backend acknowledges the whole sale.
// Backend failures are returned as *SubmissionFailedError; no retry is made.
func (s *Session) Submit(ctx context.Context, customer Customer) (string, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return "", ErrSubmissionInProgress
	}
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return "", ErrEmptyCart
	}
	s.submitting = true
	s.touch()
	items := itemsFromLines(s.cart.lines)
	s.mu.Unlock()

	ctx, span := s.svc.tracer.Start(ctx, "sale.Submit", trace.WithAttributes(
		attribute.Int("sale.lines", len(items)),
	))
	defer span.End()

	lg := zctx.From(ctx)
	saleID, err := s.svc.backend.SubmitSale(ctx, Header{Customer: customer.normalize()}, items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.touch()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit sale")
		s.svc.salesFailed.Add(ctx, 1)
		lg.Warn("Sale submission failed", zap.Int("lines", len(items)), zap.Error(err))
		return "", &SubmissionFailedError{Err: err}
	}

	s.cart.Clear()
	s.svc.salesSubmitted.Add(ctx, 1)
	span.SetAttributes(attribute.String("sale.id", saleID))
	lg.Info("Sale submitted", zap.String("sale_id", saleID), zap.Int("lines", len(items)))
	return saleID, nil
}

// LastActive returns the time of the last operation on the session.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Submitting reports whether a submission is in flight.
func (s *Session) Submitting() bool {
	return s.busy()
}

func (s *Session) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

func (s *Session) touch() {
	s.lastActive.Store(s.svc.now().UnixNano())
}

func itemsFromLines(lines []Line) []Item {
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
		}
	}
	return items
}
