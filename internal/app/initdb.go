package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/talkincode/productsapi/internal/domain"
)

// checkCategories creates the default categories that are missing
func (a *Application) checkCategories(ctx context.Context) error {
	created, err := a.seeder.EnsureCategories(ctx, domain.DefaultCategories())
	if err != nil {
		zap.L().Error("failed to seed categories", zap.Error(err))
		return err
	}
	if created > 0 {
		zap.L().Info("initialized default categories", zap.Int("count", created))
	}
	return nil
}

// checkProducts seeds the demo products into an empty store
func (a *Application) checkProducts(ctx context.Context) error {
	existing, err := a.products.List(ctx)
	if err != nil {
		zap.L().Error("failed to query products", zap.Error(err))
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, p := range domain.DemoProducts() {
		p := p
		if err := a.products.Add(ctx, &p); err != nil {
			zap.L().Error("failed to create demo product", zap.String("name", p.Name), zap.Error(err))
			return err
		}
	}
	zap.L().Info("initialized demo products", zap.Int("count", len(domain.DemoProducts())))
	return nil
}
