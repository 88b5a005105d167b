package sale

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/fitstock/internal/domain/product"
)

const instrumentationName = "github.com/xenking/fitstock/internal/domain/sale"

// Header is the sale header record written on submission.
type Header struct {
	Customer Customer
}

// Item is one sale-item record written on submission, derived from a cart
// line.
type Item struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Backend is the inventory store a sale session talks to. The store owns the
// authoritative stock check and decrements stock when a sale is written.
type Backend interface {
	// FetchAvailableProducts returns every product with stock.
	FetchAvailableProducts(ctx context.Context) ([]product.Product, error)
	// SubmitSale writes the header and its items and returns the sale ID.
	SubmitSale(ctx context.Context, h Header, items []Item) (string, error)
}

// Options configures a Service. Zero values fall back to time.Now and the
// global OpenTelemetry providers.
type Options struct {
	Now            func() time.Time
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service creates sale sessions bound to a backend and shares one invoice
// issuer and telemetry between them.
type Service struct {
	backend Backend
	issuer  *InvoiceIssuer
	now     func() time.Time
	tracer  trace.Tracer

	salesSubmitted metric.Int64Counter
	salesFailed    metric.Int64Counter
	invoicesIssued metric.Int64Counter
}

// NewService creates a sale Service.
func NewService(backend Backend, opts Options) (*Service, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}

	meter := opts.MeterProvider.Meter(instrumentationName)
	s := &Service{
		backend: backend,
		issuer:  NewInvoiceIssuer(opts.Now),
		now:     opts.Now,
		tracer:  opts.TracerProvider.Tracer(instrumentationName),
	}

	var err error
	if s.salesSubmitted, err = meter.Int64Counter("fitstock.sale.submitted",
		metric.WithDescription("Sales written to the backend"),
	); err != nil {
		return nil, errors.Wrap(err, "sales submitted counter")
	}
	if s.salesFailed, err = meter.Int64Counter("fitstock.sale.failed",
		metric.WithDescription("Sale submissions rejected by the backend"),
	); err != nil {
		return nil, errors.Wrap(err, "sales failed counter")
	}
	if s.invoicesIssued, err = meter.Int64Counter("fitstock.invoice.issued",
		metric.WithDescription("Invoices generated"),
	); err != nil {
		return nil, errors.Wrap(err, "invoices issued counter")
	}

	return s, nil
}

// AvailableProducts returns the current catalog of products with stock.
func (s *Service) AvailableProducts(ctx context.Context) ([]product.Product, error) {
	products, err := s.backend.FetchAvailableProducts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch available products")
	}
	return products, nil
}

// NewSession starts a sale-entry session with an empty cart.
func (s *Service) NewSession() *Session {
	sess := &Session{
		svc:  s,
		cart: NewCart(),
	}
	sess.touch()
	return sess
}
