package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/FaYMan2/terdel/pkg/cache"
	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/layout"
)

// envMap returns a Getenv backed by m.
func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.LayoutConfig() != layout.DefaultConfig() {
		t.Errorf("LayoutConfig() = %+v", cfg.LayoutConfig())
	}
	if cfg.Server.Addr != ":8080" || cfg.Database.Schema != "public" {
		t.Errorf("Default() = %+v", cfg)
	}
}

func TestDefaultCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	if got := DefaultCacheDir(); got != "/tmp/xdg/terdel" {
		t.Errorf("DefaultCacheDir() = %q", got)
	}

	t.Setenv("XDG_CACHE_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got, want := DefaultCacheDir(), filepath.Join(home, ".cache", "terdel"); got != want {
		t.Errorf("DefaultCacheDir() = %q, want %q", got, want)
	}
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t), Getenv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "terdel.toml", `
[database]
dsn = "postgres://app@db/shop"
driver = "postgres"
schema = "sales"

[server]
addr = ":9000"
allowed_origins = ["http://localhost:5173"]
read_timeout = "5s"
data_limit = 250

[layout]
x_step = 400
y_step = 250

[cache]
backend = "redis"
redis_addr = "cache:6379"
ttl = "1h"

[fetch]
concurrency = 4
`)

	cfg, err := Load(LoadOptions{File: path, EnvFile: noEnvFile(t), Getenv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.DSN != "postgres://app@db/shop" || cfg.Database.Driver != "postgres" || cfg.Database.Schema != "sales" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.ReadTimeout != 5*time.Second || cfg.Server.DataLimit != 250 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, []string{"http://localhost:5173"}) {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.WriteTimeout != Default().Server.WriteTimeout {
		t.Error("unset keys should keep their defaults")
	}
	if cfg.LayoutConfig() != (layout.Config{XStep: 400, YStep: 250}) {
		t.Errorf("Layout = %+v", cfg.Layout)
	}
	if cfg.Cache.Backend != cache.BackendRedis || cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Fetch.Concurrency != 4 {
		t.Errorf("Concurrency = %d", cfg.Fetch.Concurrency)
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "[database\n"},
		{"unknown key", "[database]\nhost = \"db\"\n"},
		{"bad duration", "[cache]\nttl = \"soon\"\n"},
		{"invalid value", "[layout]\nx_step = -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "terdel.toml", tt.content)
			_, err := Load(LoadOptions{File: path, EnvFile: noEnvFile(t), Getenv: envMap(nil)})
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Load() = %v, want INVALID_CONFIG", err)
			}
		})
	}

	_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "nope.toml"), EnvFile: noEnvFile(t)})
	if err == nil {
		t.Error("Load() should fail for a missing config file")
	}
}

func TestLoadEnv(t *testing.T) {
	env := envMap(map[string]string{
		"DATABASE_URL":           "host=db dbname=shop",
		"PORT":                   "3000",
		"TERDEL_ALLOWED_ORIGINS": "http://a.test, http://b.test,",
		"TERDEL_CACHE":           "mongo",
		"TERDEL_MONGO_URI":       "mongodb://mongo:27017",
		"TERDEL_CACHE_TTL":       "30s",
		"TERDEL_Y_STEP":          "120.5",
		"TERDEL_CONCURRENCY":     "16",
		"TERDEL_REDIS_DB":        "2",
	})

	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t), Getenv: env})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.DSN != "host=db dbname=shop" {
		t.Errorf("DSN = %q", cfg.Database.DSN)
	}
	if cfg.Server.Addr != ":3000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, []string{"http://a.test", "http://b.test"}) {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Cache.Backend != "mongo" || cfg.Cache.TTL != 30*time.Second || cfg.Cache.RedisDB != 2 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Layout.YStep != 120.5 || cfg.Fetch.Concurrency != 16 {
		t.Errorf("Layout = %+v, Fetch = %+v", cfg.Layout, cfg.Fetch)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "terdel.toml", "[server]\naddr = \":9000\"\n")
	cfg, err := Load(LoadOptions{
		File:    path,
		EnvFile: noEnvFile(t),
		Getenv:  envMap(map[string]string{"TERDEL_ADDR": "127.0.0.1:7000"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != "127.0.0.1:7000" {
		t.Errorf("Addr = %q, want environment value", cfg.Server.Addr)
	}
}

func TestLoadDotenv(t *testing.T) {
	envFile := writeFile(t, ".env", "DATABASE_URL=postgres://from-dotenv/db\nTERDEL_SCHEMA=inventory\n")

	cfg, err := Load(LoadOptions{EnvFile: envFile, Getenv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.DSN != "postgres://from-dotenv/db" || cfg.Database.Schema != "inventory" {
		t.Errorf("Database = %+v", cfg.Database)
	}

	// The process environment wins over the dotenv file.
	cfg, err = Load(LoadOptions{
		EnvFile: envFile,
		Getenv:  envMap(map[string]string{"DATABASE_URL": "postgres://from-env/db"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.DSN != "postgres://from-env/db" {
		t.Errorf("DSN = %q, want environment value", cfg.Database.DSN)
	}
}

func TestLoadEnvErrors(t *testing.T) {
	for _, kv := range [][2]string{
		{"TERDEL_CONCURRENCY", "many"},
		{"TERDEL_X_STEP", "wide"},
		{"TERDEL_CACHE_TTL", "forever"},
		{"TERDEL_REDIS_DB", "one"},
		{"TERDEL_DB_DRIVER", "mysql"},
		{"TERDEL_SCHEMA", "bad schema"},
		{"TERDEL_CACHE", "memcached"},
	} {
		t.Run(kv[0], func(t *testing.T) {
			_, err := Load(LoadOptions{EnvFile: noEnvFile(t), Getenv: envMap(map[string]string{kv[0]: kv[1]})})
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Load() = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"negative timeout", func(c *Config) { c.Server.WriteTimeout = -time.Second }},
		{"negative data limit", func(c *Config) { c.Server.DataLimit = -1 }},
		{"negative pool", func(c *Config) { c.Database.MaxOpenConns = -1 }},
		{"zero concurrency", func(c *Config) { c.Fetch.Concurrency = 0 }},
		{"file cache without dir", func(c *Config) { c.Cache.Dir = "" }},
		{"redis without addr", func(c *Config) { c.Cache.Backend = cache.BackendRedis }},
		{"mongo without uri", func(c *Config) { c.Cache.Backend = cache.BackendMongo }},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Minute }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() = %v, want INVALID_CONFIG", err)
			}
		})
	}

	cfg := Default()
	cfg.Cache.Backend = cache.BackendNone
	cfg.Cache.Dir = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled cache should not need a dir: %v", err)
	}
}

func TestRequireDSN(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireDSN(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("RequireDSN() = %v, want INVALID_CONFIG", err)
	}
	cfg.Database.DSN = "postgres://localhost/app"
	if err := cfg.RequireDSN(); err != nil {
		t.Errorf("RequireDSN() = %v", err)
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Database.DSN = "postgres://localhost/app"
	cfg.Cache.Backend = cache.BackendRedis
	cfg.Cache.RedisAddr = "localhost:6379"

	pg := cfg.PostgresOptions()
	if pg.DSN != cfg.Database.DSN || pg.Driver != "pgx" || pg.Schema != "public" || pg.MaxOpenConns != 10 {
		t.Errorf("PostgresOptions() = %+v", pg)
	}

	co := cfg.CacheOptions()
	if co.Backend != cache.BackendRedis || co.RedisAddr != "localhost:6379" || co.MongoDatabase != "terdel" {
		t.Errorf("CacheOptions() = %+v", co)
	}

	po := cfg.PipelineOptions()
	if po.Schema != "public" || po.Layout != layout.DefaultConfig() || po.TTL != cache.TTLDiagram {
		t.Errorf("PipelineOptions() = %+v", po)
	}
}
