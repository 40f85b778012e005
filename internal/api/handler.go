package api

import (
	"context"

	"github.com/talkincode/productsapi/internal/domain"
	"github.com/talkincode/productsapi/internal/repository"
	"github.com/talkincode/productsapi/internal/service"
	"github.com/talkincode/productsapi/internal/webserver"
)

// ProductService is the product use case surface used by the handlers
type ProductService interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in service.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

var _ ProductService = (*service.ProductService)(nil)

type Handler struct {
	products   ProductService
	categories repository.CategoryRepository
	version    string
}

func NewHandler(products ProductService, categories repository.CategoryRepository, version string) *Handler {
	return &Handler{
		products:   products,
		categories: categories,
		version:    version,
	}
}

// Register installs all routes on the web server
func (h *Handler) Register(s *webserver.WebServer) {
	s.Root().GET("/health", h.health)
	h.registerCategoryRoutes(s)
	h.registerProductRoutes(s)
}
