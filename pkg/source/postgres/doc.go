// Package postgres reads schema catalogs from a PostgreSQL database.
//
// The introspector queries pg_catalog directly rather than
// information_schema so that default expressions, attribute order and
// single-column unique indexes are available in one pass:
//
//   - table names from pg_tables
//   - columns from pg_attribute joined with pg_attrdef, ordered by attnum
//   - constraints from pg_constraint, one row per constrained column
//
// Connections go through database/sql. The default driver is pgx
// (github.com/jackc/pgx/v5/stdlib); lib/pq is available as "postgres".
//
//	db, err := postgres.Open(ctx, postgres.Options{DSN: os.Getenv("DATABASE_URL")})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	names, err := db.TableNames(ctx)
//
// Table contents can be read and appended through [DB.TableData] and
// [DB.InsertRow]. Table and column names are validated as plain
// identifiers before they are interpolated into SQL.
package postgres
