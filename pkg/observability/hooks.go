// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup
// to receive events about schema loading, layout, rendering, cache use and
// outgoing API calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [LogHooks] is the one bundled implementation; the CLI registers it in
// verbose mode so every stage is logged at debug level.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.Register(observability.All(observability.NewLogHooks(logger)))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnLoadStart(ctx, source)
//	// ... fetch catalogs ...
//	observability.Pipeline().OnLoadComplete(ctx, source, tables, failed, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the diagram pipeline.
type PipelineHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, tables, failed int, duration time.Duration, err error)

	// Assembly
	OnAssemble(ctx context.Context, tables, failed int, duration time.Duration)

	// Layout events
	OnLayoutStart(ctx context.Context, tables int)
	OnLayoutComplete(ctx context.Context, positioned, unresolved int, duration time.Duration)

	// Render events
	OnRenderStart(ctx context.Context, format string)
	OnRenderComplete(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementation
// =============================================================================

// Noop ignores every event. It is the default for all three categories.
type Noop struct{}

func (Noop) OnLoadStart(context.Context, string)                                    {}
func (Noop) OnLoadComplete(context.Context, string, int, int, time.Duration, error) {}
func (Noop) OnAssemble(context.Context, int, int, time.Duration)                    {}
func (Noop) OnLayoutStart(context.Context, int)                                     {}
func (Noop) OnLayoutComplete(context.Context, int, int, time.Duration)              {}
func (Noop) OnRenderStart(context.Context, string)                                  {}
func (Noop) OnRenderComplete(context.Context, string, int, time.Duration, error)    {}
func (Noop) OnCacheHit(context.Context, string)                                     {}
func (Noop) OnCacheMiss(context.Context, string)                                    {}
func (Noop) OnCacheSet(context.Context, string, int)                                {}
func (Noop) OnRequest(context.Context, string, string, string)                      {}
func (Noop) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (Noop) OnError(context.Context, string, string, string, error)                 {}

var (
	_ PipelineHooks = Noop{}
	_ CacheHooks    = Noop{}
	_ HTTPHooks     = Noop{}
)

// =============================================================================
// Global Hook Registry
// =============================================================================

// Hooks bundles one implementation per event category. Nil fields leave the
// registered implementation in place.
type Hooks struct {
	Pipeline PipelineHooks
	Cache    CacheHooks
	HTTP     HTTPHooks
}

// All returns Hooks using h for every category.
func All[T interface {
	PipelineHooks
	CacheHooks
	HTTPHooks
}](h T) Hooks {
	return Hooks{Pipeline: h, Cache: h, HTTP: h}
}

var (
	hooksMu sync.RWMutex
	current = defaults()
)

func defaults() Hooks {
	return Hooks{Pipeline: Noop{}, Cache: Noop{}, HTTP: Noop{}}
}

// Register installs the non-nil hooks in h and returns a function that
// restores the previous set. Call it at startup before the pipeline runs.
func Register(h Hooks) (restore func()) {
	hooksMu.Lock()
	defer hooksMu.Unlock()

	prev := current
	if h.Pipeline != nil {
		current.Pipeline = h.Pipeline
	}
	if h.Cache != nil {
		current.Cache = h.Cache
	}
	if h.HTTP != nil {
		current.HTTP = h.HTTP
	}
	return func() {
		hooksMu.Lock()
		defer hooksMu.Unlock()
		current = prev
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return current.Pipeline
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return current.Cache
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return current.HTTP
}

// Reset restores all hooks to [Noop].
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	current = defaults()
}
