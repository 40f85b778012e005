package app

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/talkincode/productsapi/config"
	"github.com/talkincode/productsapi/internal/cache"
	"github.com/talkincode/productsapi/internal/domain"
	"github.com/talkincode/productsapi/internal/events"
	"github.com/talkincode/productsapi/internal/imagestore"
	"github.com/talkincode/productsapi/internal/repository"
	"github.com/talkincode/productsapi/internal/service"
)

type Application struct {
	appConfig      *config.AppConfig
	gormDB         *gorm.DB
	boltDB         *bolt.DB
	redisCache     *cache.RedisCache
	forwarder      *events.AMQPForwarder
	bus            *events.Bus
	sched          *cron.Cron
	images         *imagestore.Store
	products       repository.ProductRepository
	categories     repository.CategoryRepository
	seeder         repository.CategorySeeder
	productService *service.ProductService
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ ProductProvider   = (*Application)(nil)
	_ CategoryProvider  = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

// DB returns the gorm handle, nil for the memory and bolt backends
func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) ProductService() *service.ProductService {
	return a.productService
}

func (a *Application) Categories() repository.CategoryRepository {
	return a.categories
}

func (a *Application) Images() *imagestore.Store {
	return a.images
}

// Bus returns the product event bus
func (a *Application) Bus() *events.Bus {
	return a.bus
}

// InitLogger replaces the global zap logger according to cfg.Logger
func InitLogger(cfg *config.AppConfig) error {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			return err
		}
	}

	zap.ReplaceGlobals(logger)
	return nil
}

// Init opens the configured store, seeds it and wires the services
func (a *Application) Init(ctx context.Context) error {
	cfg := a.appConfig
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	if err := cfg.InitDirs(); err != nil {
		return err
	}

	if err := a.openStore(); err != nil {
		return err
	}
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if cfg.Cache.Enabled {
		a.initCache(ctx)
	}

	a.images, err = imagestore.New(cfg.GetImageDir())
	if err != nil {
		return err
	}

	if err := a.initEvents(); err != nil {
		return err
	}

	a.productService = service.NewProductService(a.products, a.images, a.bus)

	if err := a.checkCategories(ctx); err != nil {
		return err
	}
	if cfg.Database.SeedDemoProducts {
		if err := a.checkProducts(ctx); err != nil {
			return err
		}
	}

	return a.initJob()
}

func (a *Application) openStore() error {
	cfg := a.appConfig
	switch cfg.Database.Type {
	case "sqlite", "postgres":
		db, err := getDatabase(cfg.Database, cfg.GetDatabasePath())
		if err != nil {
			return err
		}
		a.gormDB = db
		if err := a.MigrateDB(cfg.Database.Debug); err != nil {
			return err
		}
		a.products = repository.NewGormProductRepository(db)
		categories := repository.NewGormCategoryRepository(db)
		a.categories, a.seeder = categories, categories
	case "bolt":
		db, err := repository.OpenBolt(cfg.GetDatabasePath())
		if err != nil {
			return err
		}
		a.boltDB = db
		a.products = repository.NewBoltProductRepository(db)
		categories := repository.NewBoltCategoryRepository(db)
		a.categories, a.seeder = categories, categories
	default:
		a.products = repository.NewMemoryProductRepository()
		categories := repository.NewMemoryCategoryRepository()
		a.categories, a.seeder = categories, categories
	}
	return nil
}

// getDatabase opens the gorm connection for sqlite or postgres
func getDatabase(cfg config.DBConfig, sqlitePath string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	if cfg.Debug {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported gorm database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", cfg.Type)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	if cfg.MaxConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
	}
	if cfg.IdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

func (a *Application) initCache(ctx context.Context) {
	cfg := a.appConfig.Cache
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c, err := cache.NewRedisCache(pingCtx, &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}, time.Duration(cfg.TTL)*time.Second, "productsapi:")
	if err != nil {
		zap.L().Warn("redis cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		return
	}
	a.redisCache = c
	a.products = repository.NewCachedProductRepository(a.products, c)
	zap.L().Info("redis cache enabled", zap.String("addr", cfg.Addr))
}

func (a *Application) initEvents() error {
	a.bus = events.NewBus()
	if err := a.bus.Subscribe(events.LogEvent, false); err != nil {
		return err
	}

	cfg := a.appConfig.Events
	if cfg.AmqpURL == "" {
		return nil
	}
	forwarder, err := events.DialAMQP(cfg.AmqpURL, cfg.Queue)
	if err != nil {
		zap.L().Warn("amqp event forwarding disabled", zap.Error(err))
		return nil
	}
	a.forwarder = forwarder
	return a.bus.Subscribe(forwarder.Forward, true)
}

func (a *Application) MigrateDB(track bool) (err error) {
	if a.gormDB == nil {
		return nil
	}
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err = fmt.Errorf("migrate database: %v", err1)
			zap.S().Error(err)
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	if err := db.Migrator().AutoMigrate(domain.Tables...); err != nil {
		return errors.Wrap(err, "migrate database")
	}
	return nil
}

// InitDb drops all product data and recreates the schema with the
// default categories
func (a *Application) InitDb(ctx context.Context) error {
	switch {
	case a.gormDB != nil:
		if err := a.gormDB.Migrator().DropTable(domain.Tables...); err != nil {
			return errors.Wrap(err, "drop tables")
		}
		if err := a.MigrateDB(false); err != nil {
			return err
		}
	case a.boltDB != nil:
		if err := repository.ResetBolt(a.boltDB); err != nil {
			return err
		}
	default:
		zap.L().Info("memory store needs no initialization")
		return nil
	}
	return a.checkCategories(ctx)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.bus != nil {
		a.bus.Wait()
	}
	if a.forwarder != nil {
		_ = a.forwarder.Close()
	}
	if a.redisCache != nil {
		_ = a.redisCache.Close()
	}
	if a.boltDB != nil {
		_ = a.boltDB.Close()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}
