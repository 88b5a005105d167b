package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/fitstock/internal/domain/product"
)

const (
	productColumns = `id, name, category, quantity, price`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY name`

	listAvailableProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE quantity > 0 ORDER BY name`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	updateProductSQL = `UPDATE products
		SET name = $2, category = $3, quantity = $4, price = $5, updated_at = now()
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, name, category, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category,
			quantity = EXCLUDED.quantity, price = EXCLUDED.price, updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListAvailable returns products with stock ordered by name.
func (r *ProductRepository) ListAvailable(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listAvailableProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list available products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// List returns every product ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return &p, nil
}

// Update overwrites the editable fields of an existing product.
func (r *ProductRepository) Update(ctx context.Context, p product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL, p.ID, p.Name, p.Category, p.Quantity, p.Price)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return product.ErrExists
		}
		return errors.Wrapf(err, "update product %q", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return product.ErrInUse
		}
		return errors.Wrapf(err, "delete product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Upsert inserts p or overwrites the product with the same ID.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	if _, err := r.pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Category, p.Quantity, p.Price); err != nil {
		if pgCode(err) == codeUniqueViolation {
			return product.ErrExists
		}
		return errors.Wrapf(err, "upsert product %q", p.ID)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Quantity, &p.Price)
	return p, err
}
