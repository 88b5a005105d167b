package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/fitstock/internal/domain/dashboard"
	"github.com/xenking/fitstock/internal/domain/purchase"
)

const (
	insertPurchaseSQL = `INSERT INTO purchases
		(id, reference, product_name, category, quantity, price_per_unit, total_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	upsertPurchasedStockSQL = `INSERT INTO products (id, name, category, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET quantity = products.quantity + EXCLUDED.quantity, updated_at = now()`

	ensureCategorySQL = `INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`

	recentPurchasesSQL = `SELECT product_name, quantity, total_cost, created_at
		FROM purchases ORDER BY created_at DESC LIMIT $1`
)

var _ purchase.Repository = (*PurchaseRepository)(nil)

// PurchaseRepository implements purchase.Repository backed by PostgreSQL.
type PurchaseRepository struct {
	pool *pgxpool.Pool
}

// NewPurchaseRepository returns a PurchaseRepository that uses the given pool.
func NewPurchaseRepository(pool *pgxpool.Pool) *PurchaseRepository {
	return &PurchaseRepository{pool: pool}
}

// Record inserts the purchase and adds its quantity to the product with the
// same name in one transaction. Unknown products are created at the purchase
// price.
func (r *PurchaseRepository) Record(ctx context.Context, p *purchase.Purchase) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertPurchaseSQL,
			p.ID, p.Reference, p.ProductName, p.Category,
			p.Quantity, p.PricePerUnit, p.TotalCost, p.CreatedAt,
		)
		if err != nil {
			if pgCode(err) == codeUniqueViolation {
				return purchase.ErrDuplicateReference
			}
			return errors.Wrapf(err, "insert purchase %q", p.ID)
		}

		if _, err := tx.Exec(ctx, ensureCategorySQL, p.Category); err != nil {
			return errors.Wrap(err, "ensure category")
		}
		_, err = tx.Exec(ctx, upsertPurchasedStockSQL,
			uuid.New().String(), p.ProductName, p.Category, p.Quantity, p.PricePerUnit,
		)
		if err != nil {
			return errors.Wrapf(err, "add stock for %q", p.ProductName)
		}
		return nil
	})
}

// RecentPurchases returns the newest purchases as activity entries.
func (r *PurchaseRepository) RecentPurchases(ctx context.Context, limit int) ([]dashboard.Activity, error) {
	rows, err := r.pool.Query(ctx, recentPurchasesSQL, limit)
	if err != nil {
		return nil, errors.Wrap(err, "recent purchases")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (dashboard.Activity, error) {
		var (
			a    dashboard.Activity
			name string
			qty  int
		)
		if err := row.Scan(&name, &qty, &a.Amount, &a.At); err != nil {
			return a, err
		}
		a.Kind = dashboard.ActivityPurchase
		a.Description = purchaseDescription(name, qty)
		return a, nil
	})
}
