package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"

	"github.com/talkincode/productsapi/config"
	"github.com/talkincode/productsapi/internal/repository"
	"github.com/talkincode/productsapi/internal/service"
)

func testConfig(t *testing.T, dbType string) *config.AppConfig {
	t.Helper()
	cfg := *config.DefaultAppConfig
	dir := t.TempDir()
	cfg.System.Workdir = filepath.Join(dir, "work")
	cfg.Storage.ImageDir = filepath.Join(dir, "images")
	cfg.Database.Type = dbType
	return &cfg
}

func newTestApp(t *testing.T, cfg *config.AppConfig) *Application {
	t.Helper()
	a := NewApplication(cfg)
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(a.Release)
	return a
}

func TestApplication_InitBackends(t *testing.T) {
	for _, dbType := range []string{"memory", "sqlite", "bolt"} {
		t.Run(dbType, func(t *testing.T) {
			a := newTestApp(t, testConfig(t, dbType))
			ctx := context.Background()

			categories, err := a.Categories().List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(categories) != 3 {
				t.Errorf("categories = %d, want 3", len(categories))
			}

			products, err := a.ProductService().ListProducts(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(products) != 0 {
				t.Errorf("fresh store has %d products", len(products))
			}

			p, err := a.ProductService().CreateProduct(ctx, service.ProductInput{
				Name:        "Kettle",
				Price:       decimal.RequireFromString("24.50"),
				Description: "Electric kettle",
				Category:    "Category 3",
			})
			if err != nil {
				t.Fatal(err)
			}
			if p.ID != 1 {
				t.Errorf("first id = %d, want 1", p.ID)
			}
			if (a.DB() != nil) != (dbType == "sqlite") {
				t.Errorf("DB() set = %v for %s", a.DB() != nil, dbType)
			}
		})
	}
}

func TestApplication_SeedDemoProducts(t *testing.T) {
	cfg := testConfig(t, "sqlite")
	cfg.Database.SeedDemoProducts = true
	a := newTestApp(t, cfg)

	products, err := a.ProductService().ListProducts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 3 {
		t.Fatalf("products = %d, want 3", len(products))
	}
	if products[2].Name != "Product 3" || !products[2].Price.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("third demo product = %+v", products[2])
	}

	// seeding again leaves a non-empty store alone
	if err := a.checkProducts(context.Background()); err != nil {
		t.Fatal(err)
	}
	products, _ = a.ProductService().ListProducts(context.Background())
	if len(products) != 3 {
		t.Errorf("products after reseed = %d, want 3", len(products))
	}
}

func TestApplication_InitDb(t *testing.T) {
	for _, dbType := range []string{"sqlite", "bolt"} {
		t.Run(dbType, func(t *testing.T) {
			cfg := testConfig(t, dbType)
			cfg.Database.SeedDemoProducts = true
			a := newTestApp(t, cfg)
			ctx := context.Background()

			if err := a.InitDb(ctx); err != nil {
				t.Fatalf("InitDb() error = %v", err)
			}
			products, err := a.ProductService().ListProducts(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(products) != 0 {
				t.Errorf("products after InitDb = %d, want 0", len(products))
			}
			if _, err := a.Categories().Get(ctx, 2); err != nil {
				t.Errorf("category 2 after InitDb: %v", err)
			}
		})
	}
}

func TestApplication_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, "memory")
	cfg.Cache.Enabled = true
	cfg.Cache.Addr = mr.Addr()
	a := newTestApp(t, cfg)

	if _, ok := a.products.(*repository.CachedProductRepository); !ok {
		t.Fatalf("products repository = %T, want cached", a.products)
	}
	if _, err := a.ProductService().ListProducts(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(mr.Keys()) == 0 {
		t.Error("list result not cached")
	}
}

func TestApplication_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Cache.Enabled = true
	cfg.Cache.Addr = "127.0.0.1:1"
	a := newTestApp(t, cfg)

	if _, ok := a.products.(*repository.MemoryProductRepository); !ok {
		t.Errorf("products repository = %T, want memory fallback", a.products)
	}
}

func TestApplication_InvalidSweepInterval(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Storage.SweepInterval = "soon"
	a := NewApplication(cfg)
	defer a.Release()
	if err := a.Init(context.Background()); err == nil || !strings.Contains(err.Error(), "sweep_interval") {
		t.Errorf("Init() error = %v, want sweep_interval error", err)
	}
}

func TestSchedImageSweepTask(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Storage.SweepInterval = "1h"
	a := newTestApp(t, cfg)
	ctx := context.Background()

	if len(a.Scheduler().Entries()) != 1 {
		t.Fatalf("scheduled jobs = %d, want 1", len(a.Scheduler().Entries()))
	}

	p, err := a.ProductService().CreateProduct(ctx, service.ProductInput{
		Name:        "Poster",
		Price:       decimal.NewFromInt(5),
		Description: "Wall poster",
		Category:    "Category 1",
		Image:       &service.ImageUpload{Filename: "poster.jpg", Content: strings.NewReader("img")},
	})
	if err != nil {
		t.Fatal(err)
	}
	orphan, err := a.Images().Save(ctx, "orphan.jpg", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := a.Images().Save(ctx, "fresh.jpg", strings.NewReader("y"))
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	for _, path := range []string{*p.ImagePath, orphan} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatal(err)
		}
	}

	a.SchedImageSweepTask()

	if _, err := os.Stat(*p.ImagePath); err != nil {
		t.Errorf("referenced image removed: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Errorf("orphan image kept: %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("recent image removed: %v", err)
	}
}
