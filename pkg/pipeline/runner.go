package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/FaYMan2/terdel/pkg/cache"
	"github.com/FaYMan2/terdel/pkg/diagram"
	"github.com/FaYMan2/terdel/pkg/layout"
	"github.com/FaYMan2/terdel/pkg/observability"
	"github.com/FaYMan2/terdel/pkg/render"
	"github.com/FaYMan2/terdel/pkg/source"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its source, cache and logger; it does
// not keep results. Multiple goroutines can safely share a Runner.
type Runner struct {
	Source source.Source
	Label  string
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner reading from src.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(src source.Source, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Source: src,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Build loads, assembles and lays out the schema. The boolean reports
// whether the diagram came from the cache.
func (r *Runner) Build(ctx context.Context, opts Options) (*diagram.Diagram, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	if opts.TTL == 0 {
		opts.TTL = cache.TTLDiagram
	}

	// Stage 1: Load
	loadStart := time.Now()
	raw, err := Load(ctx, r.Source, LoadOptions{Concurrency: opts.Concurrency, Label: r.Label})
	if err != nil {
		return nil, false, fmt.Errorf("load: %w", err)
	}
	r.Logger.Info("loaded catalog",
		"tables", len(raw.TableNames),
		"constraints", len(raw.Constraints),
		"failed", len(raw.Failed),
		"duration", time.Since(loadStart))
	for table, ferr := range raw.Failed {
		r.Logger.Warn("skipping table", "table", table, "err", ferr)
	}

	rawHash, err := cache.HashJSON(raw)
	if err != nil {
		return nil, false, fmt.Errorf("hash catalog: %w", err)
	}
	key := r.Keyer.DiagramKey(rawHash, cache.DiagramKeyOpts{
		Schema: opts.Schema,
		XStep:  opts.Layout.XStep,
		YStep:  opts.Layout.YStep,
	})

	if !opts.Refresh {
		if d, ok := r.cached(ctx, key); ok {
			r.Logger.Debug("diagram cache hit", "key", key)
			return d, true, nil
		}
	}

	// Stage 2: Assemble
	assembled := raw.Assemble(ctx)

	// Stage 3: Layout
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, len(assembled.Tables))
	layoutStart := time.Now()
	laid := layout.Compute(assembled.Tables, opts.Layout)
	hooks.OnLayoutComplete(ctx, len(laid.Positions), len(laid.Unresolved), time.Since(layoutStart))

	r.Logger.Info("computed layout",
		"tables", len(assembled.Tables),
		"unresolved", len(laid.Unresolved),
		"duration", time.Since(layoutStart))

	d := diagram.New(opts.Schema, assembled, laid, opts.Layout)

	if len(raw.Failed) == 0 {
		if data, err := diagram.Marshal(d); err == nil {
			r.store(ctx, key, data, opts.TTL)
		}
	}
	return d, false, nil
}

// Render produces d in format, caching the output by diagram content.
func (r *Runner) Render(ctx context.Context, d *diagram.Diagram, format render.Format, opts render.Options) ([]byte, error) {
	data, err := diagram.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("serialize diagram for cache key: %w", err)
	}
	key := r.Keyer.ArtifactKey(cache.Hash(data), cache.ArtifactKeyOpts{
		Format:   string(format),
		Detailed: opts.Detailed,
	})

	if out, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, key)
		return out, nil
	}
	observability.Cache().OnCacheMiss(ctx, key)

	out, err := render.Render(ctx, d, format, opts)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	r.store(ctx, key, out, cache.TTLArtifact)
	return out, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) cached(ctx context.Context, key string) (*diagram.Diagram, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, key)
		return nil, false
	}
	d, err := diagram.Unmarshal(data)
	if err != nil {
		// Stale format or corrupt entry; recompute.
		observability.Cache().OnCacheMiss(ctx, key)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, key)
	return d, true
}

func (r *Runner) store(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, key, len(data))
}
