package repository

import (
	"context"
	"errors"

	"github.com/talkincode/productsapi/internal/domain"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// ProductRepository handles product persistence
type ProductRepository interface {
	// List returns all products ordered by id
	List(ctx context.Context) ([]domain.Product, error)

	// Get returns a product by id or ErrProductNotFound
	Get(ctx context.Context, id int64) (*domain.Product, error)

	// Add assigns a new id to p and stores it
	Add(ctx context.Context, p *domain.Product) error

	// Update overwrites an existing product, ErrProductNotFound if absent
	Update(ctx context.Context, p *domain.Product) error

	// Delete removes a product, ErrProductNotFound if absent
	Delete(ctx context.Context, id int64) error
}

// CategoryRepository gives read access to categories
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, id int64) (*domain.Category, error)
}

// CategorySeeder creates the categories that do not exist yet
type CategorySeeder interface {
	EnsureCategories(ctx context.Context, categories []domain.Category) (created int, err error)
}
