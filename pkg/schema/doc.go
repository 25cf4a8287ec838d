// Package schema assembles raw catalog records into a normalized table graph.
//
// A backend reports three independent record sets: the list of table names,
// the ordered column metadata of each table, and a flat list of constraints.
// [Assemble] merges them into [Table] values whose [Column] entries carry
// resolved primary-key and foreign-key information:
//
//	res := schema.Assemble(names, columnsByTable, constraints)
//	for _, t := range res.Tables {
//	    fmt.Println(t.Name, t.ForeignKeyCount())
//	}
//	for _, f := range res.Failed {
//	    log.Printf("skipped %s: %v", f.Table, f.Err)
//	}
//
// # Resolution Rules
//
//   - Constraints apply to a table when their SourceTable matches its name
//     exactly (case-sensitive).
//   - A column is primary when any "p" constraint names it.
//   - A column is a foreign key when the first "f" constraint naming it (in
//     list order) carries both a target table and a target column. Composite
//     foreign keys are not disambiguated.
//   - IsIdentity is derived from the default expression referencing a
//     sequence ([SequenceMarker]).
//   - IsUnique is never derived from constraints; it is copied from the raw
//     column when a backend supplies it.
//
// # Partial Results
//
// A table without a column list is reported in [Result.Failed] and omitted
// from [Result.Tables]; the remaining tables are still assembled. Table and
// column order always follow the input order, and duplicate table names are
// not collapsed.
//
// # Concurrency
//
// Assemble is a pure function of its inputs and is safe for concurrent use.
// Returned values are never mutated by this package after construction.
package schema
