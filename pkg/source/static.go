package source

import (
	"context"
	"slices"

	"github.com/FaYMan2/terdel/pkg/errors"
	"github.com/FaYMan2/terdel/pkg/schema"
)

// Static is an in-memory [Source].
type Static struct {
	Names          []string                      `json:"table_names"`
	ColumnsByTable map[string][]schema.RawColumn `json:"columns"`
	AllConstraints []schema.Constraint           `json:"constraints"`
}

// TableNames returns a copy of Names, or a NOT_FOUND error when empty.
func (s *Static) TableNames(context.Context) ([]string, error) {
	if len(s.Names) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "no tables found")
	}
	return slices.Clone(s.Names), nil
}

// Columns returns the columns of table.
func (s *Static) Columns(_ context.Context, table string) ([]schema.RawColumn, error) {
	cols, ok := s.ColumnsByTable[table]
	if !ok {
		return nil, errors.New(errors.ErrCodeTableNotFound, "table %q not found", table)
	}
	return slices.Clone(cols), nil
}

// Constraints returns a copy of AllConstraints.
func (s *Static) Constraints(context.Context) ([]schema.Constraint, error) {
	return slices.Clone(s.AllConstraints), nil
}

var _ Source = (*Static)(nil)
