package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/fitstock/internal/domain/category"
)

const (
	listCategoriesSQL = `SELECT id, name FROM categories ORDER BY name`

	createCategorySQL = `INSERT INTO categories (name) VALUES ($1) RETURNING id, name`

	renameCategorySQL = `UPDATE categories c SET name = $2
		FROM categories old
		WHERE c.id = $1 AND old.id = c.id
		RETURNING old.name`

	renameProductCategorySQL = `UPDATE products SET category = $2, updated_at = now() WHERE category = $1`

	deleteCategorySQL = `DELETE FROM categories c
		WHERE c.id = $1
		  AND NOT EXISTS (SELECT 1 FROM products p WHERE p.category = c.name)`

	categoryExistsSQL = `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns all categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[category.Category])
}

// Create inserts a category.
func (r *CategoryRepository) Create(ctx context.Context, name string) (*category.Category, error) {
	var c category.Category
	err := r.pool.QueryRow(ctx, createCategorySQL, name).Scan(&c.ID, &c.Name)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return nil, category.ErrExists
		}
		return nil, errors.Wrapf(err, "create category %q", name)
	}
	return &c, nil
}

// Ensure creates the category unless one with the name exists.
func (r *CategoryRepository) Ensure(ctx context.Context, name string) error {
	if _, err := r.pool.Exec(ctx, ensureCategorySQL, name); err != nil {
		return errors.Wrapf(err, "ensure category %q", name)
	}
	return nil
}

// Rename changes the category name and moves its products along with it.
func (r *CategoryRepository) Rename(ctx context.Context, id, name string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var oldName string
		err := tx.QueryRow(ctx, renameCategorySQL, id, name).Scan(&oldName)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return category.ErrNotFound
		case pgCode(err) == codeUniqueViolation:
			return category.ErrExists
		case err != nil:
			return errors.Wrapf(err, "rename category %q", id)
		}

		if _, err := tx.Exec(ctx, renameProductCategorySQL, oldName, name); err != nil {
			return errors.Wrap(err, "move products")
		}
		return nil
	})
}

// Delete removes a category no product uses.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCategorySQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete category %q", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, categoryExistsSQL, id).Scan(&exists); err != nil {
		return errors.Wrapf(err, "check category %q", id)
	}
	if exists {
		return category.ErrInUse
	}
	return category.ErrNotFound
}
