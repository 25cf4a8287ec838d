package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/FaYMan2/terdel/pkg/errors"
)

// TableData returns up to limit rows of table. A limit of zero or less
// returns every row. The query is bounded by a five second timeout.
func (d *DB) TableData(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	if err := errors.ValidateIdentifier(table); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := "SELECT * FROM " + d.qualified(table)
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapQuery(err, "query table %s", table)
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		row, err := scanMap(rows)
		if err != nil {
			return nil, wrapQuery(err, "read row of %s", table)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(err, "iterate rows of %s", table)
	}
	return out, nil
}

// InsertRow inserts values into table and returns the stored row. Columns
// are written in sorted order so the generated statement is stable.
func (d *DB) InsertRow(ctx context.Context, table string, values map[string]any) (map[string]any, error) {
	if err := errors.ValidateIdentifier(table); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "request body cannot be empty")
	}

	columns := make([]string, 0, len(values))
	for col := range values {
		if err := errors.ValidateIdentifier(col); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	slices.Sort(columns)

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		d.qualified(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapQuery(err, "insert into %s", table)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, wrapQuery(err, "insert into %s", table)
		}
		return map[string]any{}, nil
	}
	row, err := scanMap(rows)
	if err != nil {
		return nil, wrapQuery(err, "read inserted row of %s", table)
	}
	return row, rows.Err()
}

func (d *DB) qualified(table string) string {
	return quoteIdent(d.schema) + "." + quoteIdent(table)
}

// quoteIdent quotes a validated identifier.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// scanMap reads the current row into a column-name keyed map. Byte slices
// become strings so rows encode as readable JSON.
func scanMap(rows *sql.Rows) (map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(map[string]any, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}
