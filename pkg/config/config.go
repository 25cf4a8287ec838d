// Package config loads terdel's runtime settings.
//
// Settings are resolved in four layers, each overriding the previous one:
//
//  1. Built-in defaults ([Default])
//  2. A TOML file (--config), decoded with BurntSushi/toml
//  3. A .env file (joho/godotenv); a missing file is not an error
//  4. The process environment
//
// Values in the process environment win over the .env file, matching the
// usual dotenv convention. Recognized variables:
//
//	DATABASE_URL            database.dsn
//	PORT                    server.addr (as ":PORT")
//	TERDEL_DB_DRIVER        database.driver (pgx | postgres)
//	TERDEL_SCHEMA           database.schema
//	TERDEL_ADDR             server.addr
//	TERDEL_ALLOWED_ORIGINS  server.allowed_origins (comma separated)
//	TERDEL_X_STEP           layout.x_step
//	TERDEL_Y_STEP           layout.y_step
//	TERDEL_CACHE            cache.backend (none | file | redis | mongo)
//	TERDEL_CACHE_DIR        cache.dir
//	TERDEL_CACHE_TTL        cache.ttl (Go duration)
//	TERDEL_REDIS_ADDR       cache.redis_addr
//	TERDEL_REDIS_PASSWORD   cache.redis_password
//	TERDEL_REDIS_DB         cache.redis_db
//	TERDEL_MONGO_URI        cache.mongo_uri
//	TERDEL_MONGO_DATABASE   cache.mongo_database
//	TERDEL_CONCURRENCY      fetch.concurrency
//
// A sample file:
//
//	[database]
//	dsn = "postgres://app@localhost/shop?sslmode=disable"
//	schema = "public"
//
//	[server]
//	addr = ":8080"
//	allowed_origins = ["http://localhost:5173"]
//	data_limit = 5000
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "10m"
package config

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/FaYMan2/terdel/pkg/cache"
	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/layout"
	"github.com/FaYMan2/terdel/pkg/pipeline"
	"github.com/FaYMan2/terdel/pkg/source/postgres"
)

// AppName names the cache and config directories.
const AppName = "terdel"

// Config is the complete runtime configuration.
type Config struct {
	Database Database `toml:"database"`
	Server   Server   `toml:"server"`
	Layout   Layout   `toml:"layout"`
	Cache    Cache    `toml:"cache"`
	Fetch    Fetch    `toml:"fetch"`
}

// Database configures the introspected PostgreSQL connection.
type Database struct {
	DSN             string        `toml:"dsn"`
	Driver          string        `toml:"driver"`
	Schema          string        `toml:"schema"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

// Server configures the HTTP API.
type Server struct {
	Addr            string        `toml:"addr"`
	AllowedOrigins  []string      `toml:"allowed_origins"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	// DataLimit caps GET /table-data rows; zero keeps the server default.
	DataLimit int `toml:"data_limit"`
}

// Layout configures grid spacing.
type Layout struct {
	XStep float64 `toml:"x_step"`
	YStep float64 `toml:"y_step"`
}

// Cache selects and configures the diagram cache.
type Cache struct {
	Backend       string        `toml:"backend"`
	Dir           string        `toml:"dir"`
	TTL           time.Duration `toml:"ttl"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	MongoURI      string        `toml:"mongo_uri"`
	MongoDatabase string        `toml:"mongo_database"`
}

// Fetch configures catalog loading.
type Fetch struct {
	Concurrency int `toml:"concurrency"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: Database{
			Driver:       postgres.DriverPgx,
			Schema:       postgres.DefaultSchema,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Server: Server{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Layout: Layout{
			XStep: layout.DefaultXStep,
			YStep: layout.DefaultYStep,
		},
		Cache: Cache{
			Backend:       cache.BackendFile,
			Dir:           DefaultCacheDir(),
			TTL:           cache.TTLDiagram,
			MongoDatabase: AppName,
		},
		Fetch: Fetch{
			Concurrency: pipeline.DefaultConcurrency,
		},
	}
}

// DefaultCacheDir returns the cache directory using the XDG convention
// (~/.cache/terdel/).
func DefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(home, ".cache", AppName)
}

// Validate reports the first invalid setting as an INVALID_CONFIG error.
// An empty DSN is allowed; commands that need a database check it with
// [Config.RequireDSN].
func (c Config) Validate() error {
	if !slices.Contains([]string{postgres.DriverPgx, postgres.DriverPQ}, c.Database.Driver) {
		return errors.New(errors.ErrCodeInvalidConfig, "database.driver must be %q or %q, got %q",
			postgres.DriverPgx, postgres.DriverPQ, c.Database.Driver)
	}
	if err := errors.ValidateIdentifier(c.Database.Schema); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "database.schema")
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 || c.Database.ConnMaxLifetime < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "database pool settings must not be negative")
	}
	if c.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "server.addr must be set")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server timeouts must not be negative")
	}
	if c.Server.DataLimit < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server.data_limit must not be negative")
	}
	if err := c.LayoutConfig().Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout")
	}
	if c.Fetch.Concurrency < 1 || c.Fetch.Concurrency > pipeline.MaxConcurrency {
		return errors.New(errors.ErrCodeInvalidConfig, "fetch.concurrency must be between 1 and %d", pipeline.MaxConcurrency)
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	switch c.Cache.Backend {
	case "", cache.BackendNone:
	case cache.BackendFile:
		if c.Cache.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.dir must be set for the file cache")
		}
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr must be set for the redis cache")
		}
	case cache.BackendMongo:
		if c.Cache.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.mongo_uri must be set for the mongo cache")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// RequireDSN validates the database connection string.
func (c Config) RequireDSN() error {
	if c.Database.DSN == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "no database configured (set DATABASE_URL or --dsn)")
	}
	return errors.ValidateDSN(c.Database.DSN)
}

// LayoutConfig converts the layout section.
func (c Config) LayoutConfig() layout.Config {
	return layout.Config{XStep: c.Layout.XStep, YStep: c.Layout.YStep}
}

// CacheOptions converts the cache section.
func (c Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:       c.Cache.Backend,
		Dir:           c.Cache.Dir,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
		MongoURI:      c.Cache.MongoURI,
		MongoDatabase: c.Cache.MongoDatabase,
	}
}

// PostgresOptions converts the database section.
func (c Config) PostgresOptions() postgres.Options {
	return postgres.Options{
		DSN:             c.Database.DSN,
		Driver:          c.Database.Driver,
		Schema:          c.Database.Schema,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// PipelineOptions converts the layout, cache and fetch sections.
func (c Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Schema:      c.Database.Schema,
		Layout:      c.LayoutConfig(),
		Concurrency: c.Fetch.Concurrency,
		TTL:         c.Cache.TTL,
	}
}
