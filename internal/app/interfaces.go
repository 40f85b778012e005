package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/talkincode/productsapi/config"
	"github.com/talkincode/productsapi/internal/repository"
	"github.com/talkincode/productsapi/internal/service"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// ProductProvider provides the product use cases
type ProductProvider interface {
	ProductService() *service.ProductService
}

// CategoryProvider provides read access to categories
type CategoryProvider interface {
	Categories() repository.CategoryRepository
}

// AppContext combines all provider interfaces for full application context
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	ProductProvider
	CategoryProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb(ctx context.Context) error
	Release()
}
