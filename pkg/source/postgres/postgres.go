package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/source"
)

// Driver names accepted by [Open].
const (
	DriverPgx = "pgx"
	DriverPQ  = "postgres"
)

// DefaultSchema is introspected when Options.Schema is empty.
const DefaultSchema = "public"

// undefinedTable is the SQLSTATE of "relation does not exist".
const undefinedTable = "42P01"

const (
	pingTimeout  = 5 * time.Second
	queryTimeout = 5 * time.Second
)

// ErrNoTables is returned by [DB.TableNames] when the schema has no tables.
var ErrNoTables = errors.New(errors.ErrCodeNotFound, "no tables found")

// Options configures [Open].
type Options struct {
	DSN             string
	Driver          string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB is a PostgreSQL catalog reader.
type DB struct {
	db     *sql.DB
	schema string
}

// Open opens a connection pool and verifies it with a ping.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if err := errors.ValidateDSN(opts.DSN); err != nil {
		return nil, err
	}
	driver := opts.Driver
	if driver == "" {
		driver = DriverPgx
	}
	if driver != DriverPgx && driver != DriverPQ {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "open database")
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeDatabase, err, "ping database")
	}

	return New(db, opts.Schema)
}

// New wraps an open *sql.DB. An empty schemaName selects [DefaultSchema].
func New(db *sql.DB, schemaName string) (*DB, error) {
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	if err := errors.ValidateIdentifier(schemaName); err != nil {
		return nil, err
	}
	return &DB{db: db, schema: schemaName}, nil
}

// Schema returns the introspected schema name.
func (d *DB) Schema() string { return d.schema }

// Close closes the pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Version returns the server version string.
func (d *DB) Version(ctx context.Context) (string, error) {
	var v string
	if err := d.db.QueryRowContext(ctx, "SELECT version()").Scan(&v); err != nil {
		return "", errors.Wrap(errors.ErrCodeDatabase, err, "query version")
	}
	return v, nil
}

// wrapQuery classifies a query error.
func wrapQuery(err error, format string, args ...any) error {
	if errors.Is(err, errors.ErrCodeTableNotFound) || errors.Is(err, errors.ErrCodeInvalidIdentifier) {
		return err
	}
	if SQLState(err) == undefinedTable {
		return errors.Wrap(errors.ErrCodeTableNotFound, err, format, args...)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, err, format, args...)
	}
	return errors.Wrap(errors.ErrCodeDatabase, err, format, args...)
}

var _ source.Backend = (*DB)(nil)
