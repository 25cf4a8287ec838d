package schema

import "strings"

// Assemble merges table names, per-table raw columns and the constraint list
// into normalized tables.
//
// Tables are emitted in tableNames order. A name missing from
// rawColumnsByTable is reported in Result.Failed with [ErrNoColumns] and
// omitted; an empty column list is a valid, column-less table.
func Assemble(tableNames []string, rawColumnsByTable map[string][]RawColumn, constraints []Constraint) Result {
	var res Result
	if len(tableNames) == 0 {
		return res
	}

	res.Tables = make([]Table, 0, len(tableNames))
	for _, name := range tableNames {
		raw, ok := rawColumnsByTable[name]
		if !ok {
			res.Failed = append(res.Failed, TableError{Table: name, Err: ErrNoColumns})
			continue
		}
		res.Tables = append(res.Tables, AssembleTable(name, raw, constraints))
	}
	return res
}

// AssembleTable builds a single table from its raw columns and the full
// constraint list. Constraints belonging to other tables are ignored.
func AssembleTable(name string, raw []RawColumn, constraints []Constraint) Table {
	own := constraintsFor(name, constraints)

	t := Table{Name: name, Columns: make([]Column, 0, len(raw))}
	for _, rc := range raw {
		col := Column{
			Name:       rc.Name,
			Type:       rc.DataType,
			IsNullable: rc.IsNullable,
			IsUnique:   rc.IsUnique,
			IsIdentity: rc.DefaultValue != nil && strings.Contains(*rc.DefaultValue, SequenceMarker),
			IsPrimary:  findConstraint(own, ConstraintPrimaryKey, rc.Name) != nil,
		}
		if fk := findConstraint(own, ConstraintForeignKey, rc.Name); fk != nil && present(fk.TargetTable) && present(fk.TargetColumn) {
			col.IsForeignKey = true
			col.TargetTable = clone(fk.TargetTable)
			col.TargetColumn = clone(fk.TargetColumn)
		}
		t.Columns = append(t.Columns, col)
	}
	return t
}

// Edges returns one edge per foreign-key column, in table then column order.
func Edges(tables []Table) []Edge {
	var edges []Edge
	for _, t := range tables {
		for _, c := range t.Columns {
			to, toCol, ok := c.Target()
			if !ok {
				continue
			}
			edges = append(edges, Edge{From: t.Name, FromColumn: c.Name, To: to, ToColumn: toCol})
		}
	}
	return edges
}

func constraintsFor(table string, constraints []Constraint) []Constraint {
	var out []Constraint
	for _, c := range constraints {
		if c.SourceTable == table {
			out = append(out, c)
		}
	}
	return out
}

// findConstraint returns the first constraint of the given type on column.
func findConstraint(constraints []Constraint, typ ConstraintType, column string) *Constraint {
	for i := range constraints {
		if constraints[i].Type == typ && constraints[i].SourceColumn == column {
			return &constraints[i]
		}
	}
	return nil
}

// present reports whether s is set and non-empty; catalogs report a missing
// target as either null or "".
func present(s *string) bool { return s != nil && *s != "" }

func clone(s *string) *string {
	v := *s
	return &v
}
