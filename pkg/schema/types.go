package schema

import (
	"errors"
	"fmt"
)

// SequenceMarker is the substring of a column default expression that marks
// the column as sequence-backed (e.g. "nextval('users_id_seq'::regclass)").
const SequenceMarker = "nextval"

// ConstraintType is the single-letter catalog code of a constraint.
type ConstraintType string

// Constraint types understood by the assembler. Other codes (unique "u",
// check "c", exclusion "x", ...) are carried through but ignored.
const (
	ConstraintPrimaryKey ConstraintType = "p"
	ConstraintForeignKey ConstraintType = "f"
)

var (
	// ErrNoColumns is reported for a table whose column list was not provided.
	ErrNoColumns = errors.New("no column list for table")

	// ErrInvalidForeignKey is returned by [Column.Validate] when the foreign-key
	// flag disagrees with the presence of the target table and column.
	ErrInvalidForeignKey = errors.New("foreign key flag does not match target")
)

// =============================================================================
// Raw Inputs
// =============================================================================

// RawColumn is one column record as reported by the backend.
type RawColumn struct {
	Name         string  `json:"column_name"`
	DataType     string  `json:"data_type"`
	IsNullable   bool    `json:"is_nullable"`
	DefaultValue *string `json:"default_value"`
	Order        int     `json:"column_order,omitempty"`

	// IsUnique is an optional enrichment some backends supply directly.
	IsUnique bool `json:"is_unique,omitempty"`
}

// Constraint is one row of the flat constraint list.
// Multi-column constraints appear once per participating column.
type Constraint struct {
	Name         string         `json:"constraintName,omitempty"`
	SourceTable  string         `json:"sourceTable"`
	SourceColumn string         `json:"sourceColumn"`
	Type         ConstraintType `json:"constraintType"`
	TargetTable  *string        `json:"targetTable"`
	TargetColumn *string        `json:"targetColumn"`
}

// =============================================================================
// Assembled Graph
// =============================================================================

// Column is a normalized column with resolved key information.
type Column struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	IsPrimary    bool    `json:"isPrimary"`
	IsIdentity   bool    `json:"isIdentity"`
	IsUnique     bool    `json:"isUnique"`
	IsNullable   bool    `json:"isNullable"`
	IsForeignKey bool    `json:"isForeignKey"`
	TargetTable  *string `json:"targetTable"`
	TargetColumn *string `json:"targetColumn"`
}

// Validate checks the foreign-key invariant: IsForeignKey is set exactly when
// both TargetTable and TargetColumn are present.
func (c Column) Validate() error {
	hasTarget := c.TargetTable != nil && c.TargetColumn != nil
	if c.IsForeignKey != hasTarget {
		return fmt.Errorf("column %s: %w", c.Name, ErrInvalidForeignKey)
	}
	return nil
}

// Target returns the referenced table and column, or ok=false when the column
// is not a foreign key.
func (c Column) Target() (table, column string, ok bool) {
	if !c.IsForeignKey || c.TargetTable == nil || c.TargetColumn == nil {
		return "", "", false
	}
	return *c.TargetTable, *c.TargetColumn, true
}

// Table is a named, ordered list of columns. The name is the table's identity
// within a schema graph.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// ForeignKeyCount returns the number of foreign-key columns. Two columns
// referencing the same target table count twice.
func (t Table) ForeignKeyCount() int {
	n := 0
	for _, c := range t.Columns {
		if c.IsForeignKey {
			n++
		}
	}
	return n
}

// Column returns the column with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Edge is a foreign-key reference from one table column to another table.
// The target table is not guaranteed to exist in the assembled set.
type Edge struct {
	From       string `json:"from"`
	FromColumn string `json:"fromColumn"`
	To         string `json:"to"`
	ToColumn   string `json:"toColumn"`
}

// TableError records a table that could not be assembled.
type TableError struct {
	Table string `json:"table"`
	Err   error  `json:"-"`
}

// Error implements the error interface.
func (e TableError) Error() string { return fmt.Sprintf("table %s: %v", e.Table, e.Err) }

// Unwrap returns the underlying cause.
func (e TableError) Unwrap() error { return e.Err }

// Result is the output of [Assemble].
type Result struct {
	Tables []Table
	Failed []TableError
}
