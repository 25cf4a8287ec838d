// Package pkg provides the core libraries for terdel schema diagrams.
//
// # Overview
//
// terdel reads the catalog of a PostgreSQL schema, turns it into tables with
// resolved keys, and places the tables on a grid so foreign keys read left
// to right. The pkg directory is organized into four main areas:
//
//  1. Domain logic: [schema] (assembly) and [layout] (positions)
//  2. Sources: [source], [source/postgres] and [source/remote]
//  3. Orchestration: [pipeline] (load → assemble → layout → render) and [diagram]
//  4. Infrastructure: [cache], [config], [server], [observability], [errors]
//
// # Architecture
//
// The typical data flow through terdel:
//
//	PostgreSQL catalog / terdel API
//	         ↓
//	    [source] package (table names, columns, constraints)
//	         ↓
//	    [schema] package (normalized tables and foreign keys)
//	         ↓
//	    [layout] package (positions)
//	         ↓
//	    [render] package (SVG, DOT, Mermaid, PDF, PNG)
//
// # Quick Start
//
// Build and render a diagram:
//
//	db, _ := postgres.Open(ctx, postgres.Options{DSN: os.Getenv("DATABASE_URL")})
//	defer db.Close()
//
//	runner := pipeline.NewRunner(db, cache.NewNullCache(), nil, nil)
//	d, _, _ := runner.Build(ctx, pipeline.Options{})
//	svg, _ := runner.Render(ctx, d, render.FormatSVG, render.Options{})
//
// # Testing
//
// Run tests:
//
//	go test -short ./...   # Unit tests only
//	go test ./...          # Include container-backed integration tests
//
// [schema]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/schema
// [layout]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/layout
// [source]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/source
// [source/postgres]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/source/postgres
// [source/remote]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/source/remote
// [pipeline]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/pipeline
// [diagram]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/diagram
// [cache]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/cache
// [config]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/config
// [server]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/server
// [observability]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/observability
// [errors]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/errors
//
// [render]: https://pkg.go.dev/github.com/FaYMan2/terdel/pkg/render
package pkg
