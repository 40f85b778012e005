package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server config
type WebConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeout     int    `yaml:"read_timeout"`     // seconds
	WriteTimeout    int    `yaml:"write_timeout"`    // seconds
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // seconds
	BodyLimit       string `yaml:"body_limit"`       // e.g. 32M
	Metrics         bool   `yaml:"metrics"`
}

// DBConfig database config
type DBConfig struct {
	Type             string `yaml:"type"` // memory, sqlite, postgres, bolt
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	Name             string `yaml:"name"`
	User             string `yaml:"user"`
	Passwd           string `yaml:"passwd"`
	Path             string `yaml:"path"` // sqlite/bolt file, relative to workdir/data
	MaxConn          int    `yaml:"max_conn"`
	IdleConn         int    `yaml:"idle_conn"`
	Debug            bool   `yaml:"debug"`
	SeedDemoProducts bool   `yaml:"seed_demo_products"`
}

// StorageConfig image storage config
type StorageConfig struct {
	ImageDir      string `yaml:"image_dir"`      // relative to the process working directory
	SweepInterval string `yaml:"sweep_interval"` // e.g. 1h, empty disables the orphan sweep
}

// CacheConfig redis cache config
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      int    `yaml:"ttl"` // seconds
}

// EventsConfig product event forwarding config
type EventsConfig struct {
	AmqpURL string `yaml:"amqp_url"`
	Queue   string `yaml:"queue"`
}

// LogConfig logger config
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system"`
	Web      WebConfig     `yaml:"web"`
	Database DBConfig      `yaml:"database"`
	Storage  StorageConfig `yaml:"storage"`
	Cache    CacheConfig   `yaml:"cache"`
	Events   EventsConfig  `yaml:"events"`
	Logger   LogConfig     `yaml:"logger"`
}

// GetDataDir returns the directory holding sqlite/bolt files
func (c *AppConfig) GetDataDir() string {
	return filepath.Join(c.System.Workdir, "data")
}

// GetLogDir returns the log directory
func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}

// GetImageDir returns the absolute image directory.
// Relative values resolve against the process working directory.
func (c *AppConfig) GetImageDir() string {
	dir := c.Storage.ImageDir
	if dir == "" {
		dir = "images"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

// GetDatabasePath returns the sqlite or bolt file path
func (c *AppConfig) GetDatabasePath() string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(c.GetDataDir(), c.Database.Path)
}

// InitDirs creates the working directories
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.System.Workdir, c.GetDataDir(), c.GetLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Validate checks the configuration
func (c *AppConfig) Validate() error {
	switch c.Database.Type {
	case "memory", "sqlite", "postgres", "bolt":
	default:
		return fmt.Errorf("unsupported database type: %s (must be memory, sqlite, postgres or bolt)", c.Database.Type)
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web port: %d", c.Web.Port)
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when cache is enabled")
	}
	if c.Events.AmqpURL != "" && c.Events.Queue == "" {
		return fmt.Errorf("events.queue is required when events.amqp_url is set")
	}
	switch c.Logger.Mode {
	case "development", "production":
	default:
		return fmt.Errorf("invalid logger mode: %s (must be development or production)", c.Logger.Mode)
	}
	return nil
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "ProductsAPI",
		Location: "Local",
		Workdir:  "var/productsapi",
		Debug:    false,
	},
	Web: WebConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     15,
		WriteTimeout:    15,
		ShutdownTimeout: 30,
		BodyLimit:       "32M",
		Metrics:         true,
	},
	Database: DBConfig{
		Type:     "memory",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "productsapi",
		User:     "postgres",
		Passwd:   "postgres",
		Path:     "productsapi.db",
		MaxConn:  20,
		IdleConn: 5,
	},
	Storage: StorageConfig{
		ImageDir:      "images",
		SweepInterval: "",
	},
	Cache: CacheConfig{
		Enabled: false,
		Addr:    "127.0.0.1:6379",
		TTL:     300,
	},
	Events: EventsConfig{
		Queue: "product.events",
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: false,
		Filename:   "var/productsapi/logs/productsapi.log",
	},
}

// LoadConfig reads the yaml config file when it exists, then applies
// PRODUCTSAPI_* environment overrides.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := *DefaultAppConfig
	if cfile == "" {
		cfile = "productsapi.yml"
	}
	data, err := os.ReadFile(cfile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfile, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config %s: %w", cfile, err)
	}

	applyEnv(&cfg)
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// normalize lowercases enum-like values so later comparisons are exact
func normalize(cfg *AppConfig) {
	cfg.Logger.Mode = strings.ToLower(strings.TrimSpace(cfg.Logger.Mode))
	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))
}

func applyEnv(cfg *AppConfig) {
	setEnvString("PRODUCTSAPI_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvString("PRODUCTSAPI_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBool("PRODUCTSAPI_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvString("PRODUCTSAPI_WEB_HOST", &cfg.Web.Host)
	setEnvInt("PRODUCTSAPI_WEB_PORT", &cfg.Web.Port)
	setEnvInt("PRODUCTSAPI_WEB_READ_TIMEOUT", &cfg.Web.ReadTimeout)
	setEnvInt("PRODUCTSAPI_WEB_WRITE_TIMEOUT", &cfg.Web.WriteTimeout)
	setEnvInt("PRODUCTSAPI_WEB_SHUTDOWN_TIMEOUT", &cfg.Web.ShutdownTimeout)
	setEnvBool("PRODUCTSAPI_WEB_METRICS", &cfg.Web.Metrics)

	setEnvString("PRODUCTSAPI_DB_TYPE", &cfg.Database.Type)
	setEnvString("PRODUCTSAPI_DB_HOST", &cfg.Database.Host)
	setEnvInt("PRODUCTSAPI_DB_PORT", &cfg.Database.Port)
	setEnvString("PRODUCTSAPI_DB_NAME", &cfg.Database.Name)
	setEnvString("PRODUCTSAPI_DB_USER", &cfg.Database.User)
	setEnvString("PRODUCTSAPI_DB_PWD", &cfg.Database.Passwd)
	setEnvString("PRODUCTSAPI_DB_PATH", &cfg.Database.Path)
	setEnvBool("PRODUCTSAPI_DB_DEBUG", &cfg.Database.Debug)
	setEnvBool("PRODUCTSAPI_DB_SEED_DEMO", &cfg.Database.SeedDemoProducts)

	setEnvString("PRODUCTSAPI_IMAGE_DIR", &cfg.Storage.ImageDir)
	setEnvString("PRODUCTSAPI_IMAGE_SWEEP_INTERVAL", &cfg.Storage.SweepInterval)

	setEnvBool("PRODUCTSAPI_CACHE_ENABLED", &cfg.Cache.Enabled)
	setEnvString("PRODUCTSAPI_CACHE_ADDR", &cfg.Cache.Addr)
	setEnvString("PRODUCTSAPI_CACHE_PASSWORD", &cfg.Cache.Password)
	setEnvInt("PRODUCTSAPI_CACHE_DB", &cfg.Cache.DB)
	setEnvInt("PRODUCTSAPI_CACHE_TTL", &cfg.Cache.TTL)

	setEnvString("PRODUCTSAPI_AMQP_URL", &cfg.Events.AmqpURL)
	setEnvString("PRODUCTSAPI_AMQP_QUEUE", &cfg.Events.Queue)

	setEnvString("PRODUCTSAPI_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBool("PRODUCTSAPI_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvString("PRODUCTSAPI_LOGGER_FILENAME", &cfg.Logger.Filename)
}

func setEnvString(name string, val *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*val = v
	}
}

func setEnvInt(name string, val *int) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}

func setEnvBool(name string, val *bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			*val = b
		}
	}
}
