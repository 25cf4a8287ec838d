// Package layout places schema tables on a 2D canvas.
//
// The engine is deliberately simple: it trades visual optimality for
// determinism and O(tables + edges) cost, so the same schema always produces
// the same diagram.
//
// # Algorithm
//
//  1. [Rank] orders tables by foreign-key column count, descending. The sort is
//     stable: ties keep their input order, which decides traversal roots.
//
//  2. Each table not yet placed when its turn arrives becomes the root of a new
//     band at x = 0. Bands advance by [Config.YStep] after each pass.
//
//  3. From a root, placement is depth-first. A table takes the position it is
//     first reached at and is never moved again; this visited check is what
//     makes cyclic references terminate. The children of a table are its
//     foreign-key targets in column order, placed one [Config.XStep] to the
//     right and centred vertically around the parent:
//
//     childY = y - YStep * floor(children / 2) + slot * YStep
//
//  4. Targets that do not name a known table keep their slot but are skipped.
//     They are reported in [Result.Unresolved].
//
// Traversal uses an explicit stack so long foreign-key chains cannot exhaust
// the call stack.
//
// # Usage
//
//	res := layout.Compute(tables, layout.DefaultConfig())
//	for name, p := range res.Positions {
//	    fmt.Printf("%s at (%.0f, %.0f)\n", name, p.X, p.Y)
//	}
package layout
