// Package render turns a [diagram.Diagram] into visual formats.
//
// # Overview
//
// Three textual formats and two raster/vector conversions are supported:
//
//   - [ToDOT]: Graphviz DOT, one record-style node per table with every
//     column listed, nodes pinned to the computed layout positions
//   - [RenderSVG]: DOT rendered by Graphviz (go-graphviz, neato engine so
//     pinned positions are kept)
//   - [ToMermaid]: a Mermaid erDiagram with relationship cardinalities
//   - [ToPDF], [ToPNG]: SVG conversion through rsvg-convert
//
// # Coordinates
//
// Layout positions grow rightwards and downwards. Graphviz positions grow
// upwards, so Y is negated when writing pos attributes. [Options.Scale]
// converts layout units to points.
//
//	dot := render.ToDOT(d, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(svg)
//
// # Relationships
//
// Mermaid output derives cardinality from the assembled columns: a foreign
// key on a unique column is one-to-one, otherwise one-to-many. Junction
// tables (two or more foreign keys that are all part of the primary key, and
// few other columns) collapse into many-to-many relationships between the
// tables they join.
package render
