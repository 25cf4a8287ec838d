// Package diagram defines the serialized form of a laid-out schema diagram.
//
// A [Diagram] bundles everything a renderer or a browser client needs:
// the assembled tables, the foreign-key edges derived from them, the
// position of every table and the spacing that produced those positions.
// It is the payload of the /diagram endpoint, the value stored in the
// cache and the file written by "terdel diagram".
//
// # Wire Format
//
//	{
//	  "version": 1,
//	  "schema": "public",
//	  "tables": [{"name": "orders", "columns": [...]}],
//	  "edges": [{"from": "orders", "fromColumn": "customer_id", "to": "customers", "toColumn": "id"}],
//	  "positions": {"orders": {"x": 0, "y": 0}, "customers": {"x": 500, "y": 0}},
//	  "x_step": 500,
//	  "y_step": 300
//	}
//
// Tables whose columns could not be fetched are listed under "failed";
// foreign keys pointing outside the table set under "unresolved".
//
// # Validation
//
// [Unmarshal] rejects documents in which a table has no position, so a
// renderer can index positions without checking.
package diagram
