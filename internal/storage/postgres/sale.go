package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/fitstock/internal/domain/dashboard"
	"github.com/xenking/fitstock/internal/domain/product"
	"github.com/xenking/fitstock/internal/domain/sale"
)

// StockChangedError is returned when a product no longer has the stock a
// sale line needs at submission time.
type StockChangedError struct {
	ProductID string
}

func (e *StockChangedError) Error() string {
	return fmt.Sprintf("stock of product %s changed since it was added", e.ProductID)
}

const (
	insertSaleSQL = `INSERT INTO sales (id, customer_name, customer_phone, total)
		VALUES ($1, $2, $3, $4)`

	insertSaleItemSQL = `INSERT INTO sale_items
		(sale_id, line_no, product_id, product_name, quantity, unit_price, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	decrementStockSQL = `UPDATE products SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2`

	unitsSoldSQL = `SELECT COALESCE(SUM(quantity), 0) FROM sale_items`

	recentSalesSQL = `SELECT s.customer_name, s.total, s.created_at,
			(SELECT COALESCE(SUM(quantity), 0) FROM sale_items i WHERE i.sale_id = s.id)
		FROM sales s ORDER BY s.created_at DESC LIMIT $1`
)

var _ sale.Backend = (*SaleRepository)(nil)

// SaleRepository is the sale.Backend backed by PostgreSQL.
type SaleRepository struct {
	pool     *pgxpool.Pool
	products *ProductRepository
}

// NewSaleRepository returns a SaleRepository that uses the given pool.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool, products: NewProductRepository(pool)}
}

// FetchAvailableProducts returns the products that currently have stock.
func (r *SaleRepository) FetchAvailableProducts(ctx context.Context) ([]product.Product, error) {
	return r.products.ListAvailable(ctx)
}

// SubmitSale stores the header and items and takes the sold units out of
// stock in one transaction. Either everything is written or nothing is.
func (r *SaleRepository) SubmitSale(ctx context.Context, h sale.Header, items []sale.Item) (string, error) {
	id := uuid.New().String()
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
	}

	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertSaleSQL, id, h.Customer.Name, h.Customer.Phone, total); err != nil {
			return errors.Wrap(err, "insert sale")
		}

		for i, it := range items {
			_, err := tx.Exec(ctx, insertSaleItemSQL,
				id, i+1, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Total,
			)
			if err != nil {
				return errors.Wrapf(err, "insert item %d", i+1)
			}

			tag, err := tx.Exec(ctx, decrementStockSQL, it.ProductID, it.Quantity)
			if err != nil {
				return errors.Wrapf(err, "decrement stock of %q", it.ProductID)
			}
			if tag.RowsAffected() == 0 {
				return &StockChangedError{ProductID: it.ProductID}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UnitsSold returns the number of units sold across all sales.
func (r *SaleRepository) UnitsSold(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, unitsSoldSQL).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "units sold")
	}
	return n, nil
}

// RecentSales returns the newest sales as activity entries.
func (r *SaleRepository) RecentSales(ctx context.Context, limit int) ([]dashboard.Activity, error) {
	rows, err := r.pool.Query(ctx, recentSalesSQL, limit)
	if err != nil {
		return nil, errors.Wrap(err, "recent sales")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (dashboard.Activity, error) {
		var (
			a        dashboard.Activity
			customer string
			units    int
		)
		if err := row.Scan(&customer, &a.Amount, &a.At, &units); err != nil {
			return a, err
		}
		a.Kind = dashboard.ActivitySale
		a.Description = saleDescription(customer, units)
		return a, nil
	})
}
