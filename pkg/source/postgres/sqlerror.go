package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// DescribeError renders a driver error for API clients, e.g.
//
//	SQL Error: null value in column "email" violates not-null constraint (Code: 23502, Detail: ..., Hint: )
//
// Errors that did not come from the server yield a generic message.
func DescribeError(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return format(pgErr.Message, pgErr.Code, pgErr.Detail, pgErr.Hint)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return format(pqErr.Message, string(pqErr.Code), pqErr.Detail, pqErr.Hint)
	}
	return "an unexpected error occurred"
}

func format(msg, code, detail, hint string) string {
	return fmt.Sprintf("SQL Error: %s (Code: %s, Detail: %s, Hint: %s)", msg, code, detail, hint)
}

// SQLState returns the SQLSTATE code of a driver error, or "".
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
