package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/FaYMan2/terdel/pkg/diagram"
	"github.com/FaYMan2/terdel/pkg/schema"
)

// Options configures DOT output.
type Options struct {
	// Detailed lists column types and key markers. When false only column
	// names are shown.
	Detailed bool

	// Scale converts layout units to Graphviz points. Zero means 1.
	Scale float64
}

// ToDOT converts a diagram to Graphviz DOT. Nodes carry pinned positions
// taken from the layout; edges connect the foreign-key column port of the
// source table to the referenced column port of the target table.
func ToDOT(d *diagram.Diagram, opts Options) string {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	var buf bytes.Buffer
	buf.WriteString("digraph schema {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  node [shape=plain, fontname=\"Helvetica\", fontsize=12];\n")
	buf.WriteString("  edge [dir=both, arrowtail=crow, arrowhead=tee,color=\"#555555\"];\n")
	buf.WriteString("\n")

	seen := make(map[string]bool, len(d.Tables))
	for _, t := range d.Tables {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true

		attrs := []string{"label=<" + tableLabel(t, opts.Detailed) + ">"}
		if p, ok := d.Positions[t.Name]; ok {
			attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", fmtPoint(p.X*scale), fmtPoint(-p.Y*scale)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", t.Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range d.Edges {
		if !seen[e.To] {
			continue
		}
		fmt.Fprintf(&buf, "  %q:%q:e -> %q:%q:w;\n", e.From, e.FromColumn, e.To, e.ToColumn)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// tableLabel builds the HTML-like label of a table node.
func tableLabel(t schema.Table, detailed bool) string {
	var b strings.Builder
	b.WriteString(`<table border="0" cellborder="1" cellspacing="0" cellpadding="4">`)
	fmt.Fprintf(&b, `<tr><td bgcolor="#dde4ee" colspan="%d"><b>%s</b></td></tr>`, colspan(detailed), html.EscapeString(t.Name))
	for _, c := range t.Columns {
		port := html.EscapeString(c.Name)
		if !detailed {
			fmt.Fprintf(&b, `<tr><td port="%s" align="left">%s</td></tr>`, port, columnName(c))
			continue
		}
		fmt.Fprintf(&b, `<tr><td port="%s" align="left">%s</td><td align="left">%s</td><td>%s</td></tr>`,
			port, columnName(c), html.EscapeString(c.Type), markers(c))
	}
	b.WriteString("</table>")
	return b.String()
}

func colspan(detailed bool) int {
	if detailed {
		return 3
	}
	return 1
}

func columnName(c schema.Column) string {
	name := html.EscapeString(c.Name)
	if c.IsPrimary {
		return "<u>" + name + "</u>"
	}
	return name
}

// markers returns the key annotations of a column, e.g. "PK FK".
func markers(c schema.Column) string {
	var m []string
	if c.IsPrimary {
		m = append(m, "PK")
	}
	if c.IsForeignKey {
		m = append(m, "FK")
	}
	if c.IsUnique {
		m = append(m, "UQ")
	}
	if !c.IsNullable && !c.IsPrimary {
		m = append(m, "NN")
	}
	return strings.Join(m, " ")
}

func fmtPoint(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// The neato engine is used so that pinned node positions are honoured.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized svg tag with a unitless one
// so browsers scale the diagram to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
