package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/fitstock/internal/domain/dashboard"
	"github.com/xenking/fitstock/internal/domain/product"
)

var _ dashboard.Source = (*DashboardRepository)(nil)

// DashboardRepository gathers the dashboard inputs from the other
// repositories.
type DashboardRepository struct {
	products  *ProductRepository
	sales     *SaleRepository
	purchases *PurchaseRepository
}

// NewDashboardRepository returns a DashboardRepository that uses the given
// pool.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{
		products:  NewProductRepository(pool),
		sales:     NewSaleRepository(pool),
		purchases: NewPurchaseRepository(pool),
	}
}

func (r *DashboardRepository) List(ctx context.Context) ([]product.Product, error) {
	return r.products.List(ctx)
}

func (r *DashboardRepository) UnitsSold(ctx context.Context) (int, error) {
	return r.sales.UnitsSold(ctx)
}

func (r *DashboardRepository) RecentPurchases(ctx context.Context, limit int) ([]dashboard.Activity, error) {
	return r.purchases.RecentPurchases(ctx, limit)
}

func (r *DashboardRepository) RecentSales(ctx context.Context, limit int) ([]dashboard.Activity, error) {
	return r.sales.RecentSales(ctx, limit)
}

func purchaseDescription(name string, qty int) string {
	return fmt.Sprintf("Purchased %d x %s", qty, name)
}

func saleDescription(customer string, units int) string {
	if customer == "" {
		customer = "walk-in customer"
	}
	return fmt.Sprintf("Sold %d items to %s", units, customer)
}
