package postgres

import (
	"context"
	"database/sql"

	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/schema"
)

const tableNamesQuery = `
SELECT tablename::text
FROM pg_catalog.pg_tables
WHERE schemaname = $1
ORDER BY tablename`

const tableExistsQuery = `
SELECT EXISTS (
	SELECT 1 FROM pg_catalog.pg_tables WHERE schemaname = $1 AND tablename = $2
)`

// is_unique covers single-column unique indexes other than the primary key.
const columnsQuery = `
SELECT
	a.attname::text AS column_name,
	pg_catalog.format_type(a.atttypid, a.atttypmod) AS data_type,
	NOT a.attnotnull AS is_nullable,
	a.attnum AS column_order,
	pg_catalog.pg_get_expr(d.adbin, d.adrelid) AS default_value,
	EXISTS (
		SELECT 1 FROM pg_catalog.pg_index i
		WHERE i.indrelid = a.attrelid
			AND i.indisunique
			AND NOT i.indisprimary
			AND i.indnatts = 1
			AND i.indkey[0] = a.attnum
	) AS is_unique
FROM pg_catalog.pg_attribute a
JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_catalog.pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
WHERE n.nspname = $1
	AND c.relname = $2
	AND a.attnum > 0
	AND NOT a.attisdropped
ORDER BY a.attnum`

// Composite keys produce one row per column, paired by position.
const constraintsQuery = `
SELECT
	c.conname::text AS constraint_name,
	src.relname::text AS source_table,
	a1.attname::text AS source_column,
	tgt.relname::text AS target_table,
	a2.attname::text AS target_column,
	c.contype::text AS constraint_type
FROM pg_catalog.pg_constraint c
JOIN pg_catalog.pg_class src ON src.oid = c.conrelid
JOIN pg_catalog.pg_namespace sn ON sn.oid = src.relnamespace
CROSS JOIN LATERAL unnest(c.conkey) WITH ORDINALITY AS k(attnum, pos)
JOIN pg_catalog.pg_attribute a1 ON a1.attrelid = src.oid AND a1.attnum = k.attnum
LEFT JOIN pg_catalog.pg_class tgt ON tgt.oid = c.confrelid
LEFT JOIN pg_catalog.pg_namespace tn ON tn.oid = tgt.relnamespace
LEFT JOIN pg_catalog.pg_attribute a2 ON a2.attrelid = tgt.oid AND a2.attnum = c.confkey[k.pos]
WHERE sn.nspname = $1
	AND (tn.nspname IS NULL OR tn.nspname = $1)
ORDER BY src.relname, c.conname, k.pos`

// TableNames returns the tables of the schema ordered by name.
func (d *DB) TableNames(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, tableNamesQuery, d.schema)
	if err != nil {
		return nil, wrapQuery(err, "query table names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapQuery(err, "scan table name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(err, "iterate table names")
	}
	if len(names) == 0 {
		return nil, ErrNoTables
	}
	return names, nil
}

// Columns returns the columns of table in attribute order.
func (d *DB) Columns(ctx context.Context, table string) ([]schema.RawColumn, error) {
	rows, err := d.db.QueryContext(ctx, columnsQuery, d.schema, table)
	if err != nil {
		return nil, wrapQuery(err, "query columns of %s", table)
	}
	defer rows.Close()

	var cols []schema.RawColumn
	for rows.Next() {
		var (
			c   schema.RawColumn
			def sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.Order, &def, &c.IsUnique); err != nil {
			return nil, wrapQuery(err, "scan column of %s", table)
		}
		if def.Valid {
			c.DefaultValue = &def.String
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(err, "iterate columns of %s", table)
	}

	if len(cols) == 0 {
		// A table without columns is legal; an unknown table is not.
		exists, err := d.tableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.New(errors.ErrCodeTableNotFound, "table %q not found in schema %s", table, d.schema)
		}
		return []schema.RawColumn{}, nil
	}
	return cols, nil
}

func (d *DB) tableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	if err := d.db.QueryRowContext(ctx, tableExistsQuery, d.schema, table).Scan(&exists); err != nil {
		return false, wrapQuery(err, "check table %s", table)
	}
	return exists, nil
}

// Constraints returns every constraint declared in the schema whose target,
// if any, lies in the same schema.
func (d *DB) Constraints(ctx context.Context) ([]schema.Constraint, error) {
	rows, err := d.db.QueryContext(ctx, constraintsQuery, d.schema)
	if err != nil {
		return nil, wrapQuery(err, "query constraints")
	}
	defer rows.Close()

	cons := []schema.Constraint{}
	for rows.Next() {
		var (
			c            schema.Constraint
			typ          string
			targetTable  sql.NullString
			targetColumn sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.SourceTable, &c.SourceColumn, &targetTable, &targetColumn, &typ); err != nil {
			return nil, wrapQuery(err, "scan constraint")
		}
		c.Type = schema.ConstraintType(typ)
		if targetTable.Valid {
			c.TargetTable = &targetTable.String
		}
		if targetColumn.Valid {
			c.TargetColumn = &targetColumn.String
		}
		cons = append(cons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(err, "iterate constraints")
	}
	return cons, nil
}
