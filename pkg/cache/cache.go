// Package cache provides the storage backends used to memoize built diagrams.
//
// A [Cache] stores opaque byte slices under string keys with an optional
// time-to-live. Four backends are available:
//
//   - [NullCache]: stores nothing; used with --no-cache
//   - [FileCache]: one JSON file per entry under a local directory (CLI default)
//   - [RedisCache]: shared cache for several API servers
//   - [MongoCache]: a collection with a TTL index on expires_at
//
// Keys are produced by a [Keyer] so that every backend sees the same key for
// the same schema snapshot and layout settings. [ScopedKeyer] prefixes keys
// per data source so two databases never share entries.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with expiration.
//
// Get returns (nil, false, nil) on a miss. Expired entries are misses.
// A ttl of zero on Set means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default time-to-live values. Diagrams follow the live catalog and expire
// quickly; artifacts are keyed by diagram content and can live longer.
const (
	TTLDiagram  = 10 * time.Minute
	TTLArtifact = 24 * time.Hour
)

// DiagramKeyOpts are the layout settings that change a diagram's content.
type DiagramKeyOpts struct {
	Schema string  `json:"schema"`
	XStep  float64 `json:"x_step"`
	YStep  float64 `json:"y_step"`
}

// ArtifactKeyOpts are the render settings that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// Keyer generates cache keys.
type Keyer interface {
	// DiagramKey returns the key of a diagram built from raw inputs whose
	// content hash is rawHash.
	DiagramKey(rawHash string, opts DiagramKeyOpts) string

	// ArtifactKey returns the key of a rendered diagram.
	ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DiagramKey implements [Keyer].
func (DefaultKeyer) DiagramKey(rawHash string, opts DiagramKeyOpts) string {
	return hashKey("diagram", rawHash, opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", diagramHash, opts)
}

var _ Keyer = DefaultKeyer{}
