package category

import (
	"context"

	"github.com/go-faster/errors"
)

// Service validates category names before handing them to the repository.
type Service struct {
	repo Repository
}

// NewService creates a category Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all categories ordered by name.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

// Create adds a category.
func (s *Service) Create(ctx context.Context, name string) (*Category, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Create(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "create category")
	}
	return c, nil
}

// Rename changes the name of an existing category.
func (s *Service) Rename(ctx context.Context, id, name string) (*Category, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return nil, errors.Wrap(err, "rename category")
	}
	return &Category{ID: id, Name: name}, nil
}

// Delete removes a category that no product uses.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete category")
	}
	return nil
}
