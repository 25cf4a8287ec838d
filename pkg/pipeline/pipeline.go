// Package pipeline turns a live schema into a positioned diagram.
//
// This package implements the load → assemble → layout pipeline shared by
// the CLI and the HTTP API, and the render stage on top of it. Keeping it in
// one place means both entry points cache, log and report failures the same
// way.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: fetch table names, constraints and per-table columns from a
//     [source.Source], concurrently
//  2. Assemble: merge the raw records into normalized tables ([schema.Assemble])
//  3. Layout: position every table ([layout.Compute])
//  4. Render: produce SVG, DOT, Mermaid, PDF or PNG output ([render.Render])
//
// # Usage
//
//	runner := pipeline.NewRunner(src, cache, nil, logger)
//	d, hit, err := runner.Build(ctx, pipeline.Options{Schema: "public"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg, err := runner.Render(ctx, d, render.FormatSVG, render.Options{})
//
// A diagram is cached under a hash of the raw catalog records plus the
// layout settings, so any schema change produces a new key. Loads that lost
// tables to per-table fetch errors are never cached.
package pipeline

import (
	"time"

	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/layout"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultSchema is the schema recorded when Options.Schema is empty.
	DefaultSchema = "public"

	// DefaultConcurrency bounds the number of per-table column fetches in
	// flight during [Load].
	DefaultConcurrency = 8

	// MaxConcurrency is the largest accepted Concurrency.
	MaxConcurrency = 64
)

// =============================================================================
// Options
// =============================================================================

// Options configures a single [Runner.Build] call.
type Options struct {
	// Schema names the database schema; it is recorded in the diagram and
	// scopes the cache key.
	Schema string

	// Layout sets the grid spacing. A zero value means layout.DefaultConfig.
	Layout layout.Config

	// Concurrency bounds per-table column fetches.
	Concurrency int

	// Refresh bypasses the cache lookup. The fresh result is still stored.
	Refresh bool

	// TTL is the diagram cache lifetime. Zero means cache.TTLDiagram.
	TTL time.Duration
}

// ValidateAndSetDefaults fills zero values with defaults and validates the
// result.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Schema == "" {
		o.Schema = DefaultSchema
	}
	if o.Layout == (layout.Config{}) {
		o.Layout = layout.DefaultConfig()
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Concurrency < 0 || o.Concurrency > MaxConcurrency {
		return errors.New(errors.ErrCodeInvalidInput, "concurrency must be between 1 and %d", MaxConcurrency)
	}
	if o.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "ttl must not be negative")
	}
	if err := o.Layout.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid layout")
	}
	return nil
}
