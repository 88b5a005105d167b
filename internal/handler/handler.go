// Package handler implements the JSON HTTP API of the inventory and sale
// entry application.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/fitstock/internal/domain/category"
	"github.com/xenking/fitstock/internal/domain/dashboard"
	"github.com/xenking/fitstock/internal/domain/product"
	"github.com/xenking/fitstock/internal/domain/purchase"
	"github.com/xenking/fitstock/internal/domain/sale"
)

// Categories manages product categories.
type Categories interface {
	List(ctx context.Context) ([]category.Category, error)
	Create(ctx context.Context, name string) (*category.Category, error)
	Rename(ctx context.Context, id, name string) (*category.Category, error)
	Delete(ctx context.Context, id string) error
}

// Purchases records stock purchases.
type Purchases interface {
	Record(ctx context.Context, req purchase.RecordRequest) (*purchase.Purchase, error)
}

// Dashboard builds inventory summaries.
type Dashboard interface {
	Summary(ctx context.Context, f dashboard.Filter) (*dashboard.Summary, error)
}

// Sessions keeps sale-entry sessions.
type Sessions interface {
	Create() (string, *sale.Session)
	Get(id string) (*sale.Session, error)
	Delete(id string) error
}

var (
	_ Categories = (*category.Service)(nil)
	_ Purchases  = (*purchase.Service)(nil)
	_ Dashboard  = (*dashboard.Service)(nil)
)

// Deps holds the domain dependencies of a Handler.
type Deps struct {
	Products   product.Repository
	Categories Categories
	Purchases  Purchases
	Dashboard  Dashboard
	Sessions   Sessions
}

// Handler serves the API routes, delegating business logic to the domain
// services.
type Handler struct {
	products   product.Repository
	categories Categories
	purchases  Purchases
	dashboard  Dashboard
	sessions   Sessions
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		products:   deps.Products,
		categories: deps.Categories,
		purchases:  deps.Purchases,
		dashboard:  deps.Dashboard,
		sessions:   deps.Sessions,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listAvailableProducts)
	mux.HandleFunc("GET /api/products/all", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.updateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.deleteProduct)

	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("POST /api/categories", h.createCategory)
	mux.HandleFunc("PUT /api/categories/{id}", h.renameCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", h.deleteCategory)

	mux.HandleFunc("POST /api/purchases", h.recordPurchase)

	mux.HandleFunc("GET /api/dashboard", h.getDashboard)

	mux.HandleFunc("POST /api/sales", h.createSale)
	mux.HandleFunc("GET /api/sales/{session}", h.getSale)
	mux.HandleFunc("DELETE /api/sales/{session}", h.discardSale)
	mux.HandleFunc("POST /api/sales/{session}/lines", h.addLine)
	mux.HandleFunc("DELETE /api/sales/{session}/lines/{line}", h.removeLine)
	mux.HandleFunc("POST /api/sales/{session}/invoice", h.downloadInvoice)
	mux.HandleFunc("POST /api/sales/{session}/submit", h.submitSale)
}
