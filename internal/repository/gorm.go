package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/talkincode/productsapi/internal/domain"
)

// GormProductRepository is the GORM implementation of ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GORM-based repository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error; err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (r *GormProductRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query product %d", id)
	}
	return &p, nil
}

func (r *GormProductRepository) Add(ctx context.Context, p *domain.Product) error {
	p.ID = 0
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return errors.Wrap(err, "create product")
	}
	return nil
}

func (r *GormProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Product{}).Where("id = ?", p.ID).Count(&count).Error; err != nil {
			return errors.Wrapf(err, "query product %d", p.ID)
		}
		if count == 0 {
			return ErrProductNotFound
		}
		if err := tx.Save(p).Error; err != nil {
			return errors.Wrapf(err, "update product %d", p.ID)
		}
		return nil
	})
}

func (r *GormProductRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete product %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GormCategoryRepository is the GORM implementation of CategoryRepository
type GormCategoryRepository struct {
	db *gorm.DB
}

func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, errors.Wrap(err, "query categories")
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

func (r *GormCategoryRepository) Get(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query category %d", id)
	}
	return &c, nil
}

func (r *GormCategoryRepository) EnsureCategories(ctx context.Context, categories []domain.Category) (int, error) {
	created := 0
	for _, c := range categories {
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Category{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
			return created, errors.Wrapf(err, "query category %d", c.ID)
		}
		if count > 0 {
			continue
		}
		c := c
		if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
			return created, errors.Wrapf(err, "create category %d", c.ID)
		}
		created++
	}
	return created, nil
}
