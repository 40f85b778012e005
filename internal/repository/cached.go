package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/talkincode/productsapi/internal/cache"
	"github.com/talkincode/productsapi/internal/domain"
)

const allProductsKey = "products:all"

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

// CachedProductRepository adds a cache-aside redis layer in front of another
// ProductRepository. Writes go to the backing store first, then invalidate.
// A read that raced a write in this process does not fill the cache. Writes
// from other processes sharing the redis are only bounded by the ttl.
type CachedProductRepository struct {
	repo  ProductRepository
	cache *cache.RedisCache

	mu  sync.Mutex
	gen uint64 // bumped on every invalidation
}

func NewCachedProductRepository(repo ProductRepository, c *cache.RedisCache) *CachedProductRepository {
	return &CachedProductRepository{repo: repo, cache: c}
}

func (r *CachedProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.cache.Get(ctx, allProductsKey, &products)
	if err == nil {
		return products, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		zap.L().Warn("product cache read failed", zap.String("key", allProductsKey), zap.Error(err))
	}

	gen := r.generation()
	products, err = r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, gen, allProductsKey, products)
	return products, nil
}

func (r *CachedProductRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	key := productKey(id)
	var p domain.Product
	err := r.cache.Get(ctx, key, &p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		zap.L().Warn("product cache read failed", zap.String("key", key), zap.Error(err))
	}

	gen := r.generation()
	found, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, gen, key, found)
	return found, nil
}

func (r *CachedProductRepository) Add(ctx context.Context, p *domain.Product) error {
	if err := r.repo.Add(ctx, p); err != nil {
		return err
	}
	r.invalidate(ctx, allProductsKey)
	return nil
}

func (r *CachedProductRepository) Update(ctx context.Context, p *domain.Product) error {
	if err := r.repo.Update(ctx, p); err != nil {
		return err
	}
	r.invalidate(ctx, allProductsKey, productKey(p.ID))
	return nil
}

func (r *CachedProductRepository) Delete(ctx context.Context, id int64) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, allProductsKey, productKey(id))
	return nil
}

func (r *CachedProductRepository) generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// fill caches value unless an invalidation happened since gen was read
func (r *CachedProductRepository) fill(ctx context.Context, gen uint64, key string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return
	}
	if err := r.cache.Set(ctx, key, value); err != nil {
		zap.L().Warn("product cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedProductRepository) invalidate(ctx context.Context, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if err := r.cache.Delete(ctx, keys...); err != nil {
		zap.L().Warn("product cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
