package render

import (
	"context"
	"fmt"
	"time"

	"github.com/FaYMan2/terdel/pkg/diagram"
	"github.com/FaYMan2/terdel/pkg/observability"
)

// Render produces d in the given format.
func Render(ctx context.Context, d *diagram.Diagram, format Format, opts Options) (out []byte, err error) {
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, string(format))
	start := time.Now()
	defer func() {
		hooks.OnRenderComplete(ctx, string(format), len(out), time.Since(start), err)
	}()

	switch format {
	case FormatDOT:
		return []byte(ToDOT(d, opts)), nil
	case FormatMermaid:
		return []byte(ToMermaid(d.Tables)), nil
	case FormatSVG:
		return RenderSVG(ctx, ToDOT(d, opts))
	case FormatPDF, FormatPNG:
		svg, err := RenderSVG(ctx, ToDOT(d, opts))
		if err != nil {
			return nil, err
		}
		if format == FormatPDF {
			return ToPDF(ctx, svg)
		}
		return ToPNG(ctx, svg, 2)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// ContentType returns the MIME type served for f.
func ContentType(f Format) string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	case FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}
