// Package source defines where schema catalogs come from.
//
// A [Source] answers the three questions the assembler needs: which tables
// exist, which columns each table has, and which constraints the schema
// declares. Two implementations ship with terdel:
//
//   - postgres: reads pg_catalog through database/sql (pgx or lib/pq driver)
//   - remote: calls the HTTP API of another terdel server
//
// [Static] serves fixed catalogs from memory; it backs snapshot files and
// tests.
package source

import (
	"context"

	"github.com/FaYMan2/terdel/pkg/schema"
)

// Source provides raw schema catalogs.
//
// Columns returns an error carrying the TABLE_NOT_FOUND code for an
// unknown table. TableNames returns an error carrying NOT_FOUND when the
// schema has no tables.
type Source interface {
	TableNames(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]schema.RawColumn, error)
	Constraints(ctx context.Context) ([]schema.Constraint, error)
}

// Rows reads and writes table contents.
type Rows interface {
	TableData(ctx context.Context, table string, limit int) ([]map[string]any, error)
	InsertRow(ctx context.Context, table string, values map[string]any) (map[string]any, error)
}

// Versioner reports the backend server version.
type Versioner interface {
	Version(ctx context.Context) (string, error)
}

// Backend is a full backend as served by the HTTP API.
type Backend interface {
	Source
	Rows
	Versioner
	Close() error
}
