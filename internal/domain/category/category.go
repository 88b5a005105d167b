package category

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
)

// MaxNameLength is the longest accepted category name, in characters.
const MaxNameLength = 50

var (
	// ErrNotFound is returned when a category ID does not exist.
	ErrNotFound = errors.New("category not found")
	// ErrExists is returned when another category already has the name.
	ErrExists = errors.New("a category with this name already exists")
	// ErrInUse is returned when deleting a category that products still use.
	ErrInUse = errors.New("category is in use by products")
)

// InvalidNameError describes why a category name was rejected.
type InvalidNameError struct {
	Reason string
}

func (e *InvalidNameError) Error() string {
	return e.Reason
}

// Category is a product category label.
type Category struct {
	ID   string
	Name string
}

// NormalizeName trims name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return "", &InvalidNameError{Reason: "category name is required"}
	case n > MaxNameLength:
		return "", &InvalidNameError{Reason: "category name too long"}
	}
	return name, nil
}

// Repository persists categories. Create and Rename return ErrExists on a
// name collision; Delete returns ErrInUse when products reference the name.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
	Create(ctx context.Context, name string) (*Category, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}
