// Package cli implements the terdel command-line interface.
//
// terdel introspects a PostgreSQL schema and draws it as an entity diagram.
// The CLI is built using cobra and logs through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - serve: Run the HTTP API against a database
//   - diagram: Build a positioned diagram (JSON) from a database or API
//   - render: Render a diagram file to SVG, DOT, Mermaid, PDF or PNG
//   - tables: Print a table and column summary
//   - explore: Browse tables, columns and foreign keys interactively
//   - cache: Manage the local diagram cache
//
// # Configuration
//
// Settings come from defaults, an optional TOML file (--config), a .env file
// and the environment (DATABASE_URL, PORT, TERDEL_*). Flags override them.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// traces pipeline, cache and HTTP client events.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/FaYMan2/terdel/pkg/buildinfo"
	"github.com/FaYMan2/terdel/pkg/cache"
	"github.com/FaYMan2/terdel/pkg/config"
	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/observability"
	"github.com/FaYMan2/terdel/pkg/pipeline"
	"github.com/FaYMan2/terdel/pkg/source"
	"github.com/FaYMan2/terdel/pkg/source/postgres"
	"github.com/FaYMan2/terdel/pkg/source/remote"
)

// appName is the application name used for display.
const appName = "terdel"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configFile string
	envFile    string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level. At debug level the pipeline,
// cache and HTTP client hooks log through the CLI logger.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		observability.Register(observability.All(observability.NewLogHooks(c.Logger)))
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "terdel draws PostgreSQL schemas as entity diagrams",
		Long:         `terdel introspects a PostgreSQL schema, lays its tables out left to right along foreign keys, and renders the result as SVG, Graphviz DOT or Mermaid. It can also serve the schema over HTTP for the browser editor.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "TOML config file")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", config.DefaultEnvFile, "dotenv file (ignored when missing)")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.diagramCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.tablesCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(config.LoadOptions{File: c.configFile, EnvFile: c.envFile})
	if err != nil {
		return err
	}
	c.cfg = cfg
	if c.configFile != "" {
		c.Logger.Debug("loaded config", "file", c.configFile)
	}
	return nil
}

// =============================================================================
// Source and Runner Factories
// =============================================================================

// sourceFlags selects where catalog data comes from.
type sourceFlags struct {
	dsn    string
	api    string
	schema string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dsn, "dsn", "", "PostgreSQL connection string (default: $DATABASE_URL)")
	cmd.Flags().StringVar(&f.api, "api", "", "terdel API base URL to read the schema from instead of a database")
	cmd.Flags().StringVar(&f.schema, "schema", "", "database schema (default: public)")
}

// openBackend connects to the API when --api is set and to PostgreSQL
// otherwise. The returned label names the source in logs.
func (c *CLI) openBackend(ctx context.Context, f sourceFlags) (source.Backend, string, error) {
	if f.api != "" {
		client, err := remote.NewClient(f.api)
		if err != nil {
			return nil, "", err
		}
		return client, client.BaseURL(), nil
	}

	cfg := c.cfg
	if f.dsn != "" {
		cfg.Database.DSN = f.dsn
	}
	if f.schema != "" {
		cfg.Database.Schema = f.schema
	}
	if err := cfg.RequireDSN(); err != nil {
		return nil, "", err
	}
	if err := errors.ValidateIdentifier(cfg.Database.Schema); err != nil {
		return nil, "", err
	}

	db, err := postgres.Open(ctx, cfg.PostgresOptions())
	if err != nil {
		return nil, "", err
	}
	return db, "postgres/" + cfg.Database.Schema, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, src source.Source, label string, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), cache.Hash([]byte(label))[:12]+":")
	r := pipeline.NewRunner(src, store, keyer, c.Logger)
	r.Label = label
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	store, err := cache.Open(ctx, c.cfg.CacheOptions())
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without it", "backend", c.cfg.Cache.Backend, "err", err)
		return cache.NewNullCache(), nil
	}
	return store, nil
}

// pipelineOptions merges layout flags over the configured defaults.
func (c *CLI) pipelineOptions(f sourceFlags, xStep, yStep float64) pipeline.Options {
	opts := c.cfg.PipelineOptions()
	if f.schema != "" {
		opts.Schema = f.schema
	}
	if xStep > 0 {
		opts.Layout.XStep = xStep
	}
	if yStep > 0 {
		opts.Layout.YStep = yStep
	}
	return opts
}
