package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/FaYMan2/terdel/pkg/errors"
)

// DefaultEnvFile is the dotenv file read when LoadOptions.EnvFile is empty.
const DefaultEnvFile = ".env"

// LoadOptions controls [Load].
type LoadOptions struct {
	// File is a TOML config file. Empty skips the file layer; a named file
	// that does not exist is an error.
	File string

	// EnvFile is a dotenv file. Empty means DefaultEnvFile; a missing file
	// is ignored.
	EnvFile string

	// Getenv looks up environment variables. Nil means os.LookupEnv.
	Getenv func(string) (string, bool)
}

// Load resolves the configuration layers and validates the result.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		md, err := toml.DecodeFile(opts.File, &cfg)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", opts.File)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", opts.File, undecoded[0].String())
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", envFile)
	}

	lookup := opts.Getenv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with any variables env reports as set.
func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := env(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := env(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.New(errors.ErrCodeInvalidConfig, "%s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}
	float := func(key string, dst *float64) error {
		v, ok := env(key)
		if !ok {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidConfig, "%s: %q is not a number", key, v)
		}
		*dst = f
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := env(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return errors.New(errors.ErrCodeInvalidConfig, "%s: %q is not a duration", key, v)
		}
		*dst = d
		return nil
	}

	str("DATABASE_URL", &cfg.Database.DSN)
	str("TERDEL_DB_DRIVER", &cfg.Database.Driver)
	str("TERDEL_SCHEMA", &cfg.Database.Schema)

	if port, ok := env("PORT"); ok && port != "" {
		cfg.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	str("TERDEL_ADDR", &cfg.Server.Addr)
	if origins, ok := env("TERDEL_ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = splitList(origins)
	}

	str("TERDEL_CACHE", &cfg.Cache.Backend)
	str("TERDEL_CACHE_DIR", &cfg.Cache.Dir)
	str("TERDEL_REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("TERDEL_REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	str("TERDEL_MONGO_URI", &cfg.Cache.MongoURI)
	str("TERDEL_MONGO_DATABASE", &cfg.Cache.MongoDatabase)

	for _, err := range []error{
		duration("TERDEL_CACHE_TTL", &cfg.Cache.TTL),
		num("TERDEL_REDIS_DB", &cfg.Cache.RedisDB),
		float("TERDEL_X_STEP", &cfg.Layout.XStep),
		float("TERDEL_Y_STEP", &cfg.Layout.YStep),
		num("TERDEL_CONCURRENCY", &cfg.Fetch.Concurrency),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
