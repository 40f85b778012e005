package service

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/talkincode/productsapi/internal/domain"
	"github.com/talkincode/productsapi/internal/events"
	"github.com/talkincode/productsapi/internal/repository"
)

// ImageStore persists uploaded product images
type ImageStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Delete(path string) error
}

// EventPublisher receives product events after successful writes
type EventPublisher interface {
	Publish(evt events.ProductEvent)
}

// ImageUpload is an uploaded file as received from the client
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// ProductInput holds the mutable product fields of a create or update
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Description string
	Category    string
	Image       *ImageUpload // nil when no file was sent
}

// ProductService handles product use cases
type ProductService struct {
	repo   repository.ProductRepository
	images ImageStore
	events EventPublisher
}

// NewProductService creates a new product service. publisher may be nil.
func NewProductService(repo repository.ProductRepository, images ImageStore, publisher EventPublisher) *ProductService {
	return &ProductService{
		repo:   repo,
		images: images,
		events: publisher,
	}
}

// ListProducts returns all products
func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

// GetProduct returns a product by id
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.Get(ctx, id)
}

// CreateProduct stores the image, if any, then the product
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p := &domain.Product{
		Name:        in.Name,
		Price:       in.Price,
		Description: in.Description,
		Category:    in.Category,
	}

	if in.Image != nil {
		path, err := s.images.Save(ctx, in.Image.Filename, in.Image.Content)
		if err != nil {
			return nil, err
		}
		p.ImagePath = &path
	}

	if err := s.repo.Add(ctx, p); err != nil {
		s.discardImage(p.ImagePath)
		return nil, err
	}

	s.publish(events.ProductCreated, p)
	return p, nil
}

// UpdateProduct overwrites all mutable fields. The stored image is only
// replaced when a new one is uploaded.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*domain.Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = in.Name
	p.Price = in.Price
	p.Description = in.Description
	p.Category = in.Category

	var oldImage *string
	if in.Image != nil {
		path, err := s.images.Save(ctx, in.Image.Filename, in.Image.Content)
		if err != nil {
			return nil, err
		}
		oldImage = p.ImagePath
		p.ImagePath = &path
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if in.Image != nil {
			s.discardImage(p.ImagePath)
		}
		return nil, err
	}

	if oldImage != nil {
		s.discardImage(oldImage)
	}

	s.publish(events.ProductUpdated, p)
	return p, nil
}

// DeleteProduct removes the product image file, then the product
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if p.HasImage() {
		if err := s.images.Delete(*p.ImagePath); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(events.ProductDeleted, p)
	return nil
}

// ReferencedImages returns the set of image paths in use
func (s *ProductService) ReferencedImages(ctx context.Context) (map[string]struct{}, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p.HasImage() {
			refs[*p.ImagePath] = struct{}{}
		}
	}
	return refs, nil
}

func (s *ProductService) discardImage(path *string) {
	if path == nil || *path == "" {
		return
	}
	if err := s.images.Delete(*path); err != nil {
		zap.L().Warn("failed to remove image", zap.String("path", *path), zap.Error(err))
	}
}

func (s *ProductService) publish(t events.Type, p *domain.Product) {
	if s.events == nil {
		return
	}
	s.events.Publish(events.NewProductEvent(t, p))
}
