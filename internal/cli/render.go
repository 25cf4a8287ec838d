package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FaYMan2/terdel/pkg/diagram"
	"github.com/FaYMan2/terdel/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string          // output file (single format) or base path (multiple)
	formats  []render.Format // svg, dot, mermaid, pdf, png
	detailed bool            // list column types and key markers
	scale    float64         // layout units to Graphviz points
}

// renderCommand creates the render command for drawing a saved diagram.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{scale: 1}

	cmd := &cobra.Command{
		Use:   "render <diagram.json>",
		Short: "Render a diagram file to SVG, DOT, Mermaid, PDF or PNG",
		Long: `Render a diagram produced by "terdel diagram".

PDF and PNG output require rsvg-convert (librsvg) on the PATH.`,
		Example: `  terdel render schema.json
  terdel render schema.json -f svg,mermaid -o out/schema
  terdel render schema.json -f png --detailed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseFormats(formatsStr)
			if err != nil {
				return err
			}
			opts.formats = formats
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, mermaid, pdf, png (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show column types and key markers")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "scale factor from layout units to points")

	return cmd
}

// parseFormats parses the --format flag. An empty flag means svg.
func parseFormats(s string) ([]render.Format, error) {
	if strings.TrimSpace(s) == "" {
		return []render.Format{render.FormatSVG}, nil
	}
	var formats []render.Format
	seen := make(map[render.Format]bool)
	for _, part := range strings.Split(s, ",") {
		f, err := render.ParseFormat(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	return formats, nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .dot, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if _, err := render.ParseFormat(ext); err == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPath returns where format f is written.
func outputPath(opts renderOpts, input string, f render.Format) string {
	if len(opts.formats) == 1 && opts.output != "" {
		return opts.output
	}
	return basePath(opts.output, input) + f.Ext()
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	d, err := diagram.ReadFile(input)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded diagram", "file", input, "tables", len(d.Tables), "edges", len(d.Edges))

	ropts := render.Options{Detailed: opts.detailed, Scale: opts.scale}
	var written []string
	for _, f := range opts.formats {
		prog := newProgress(c.Logger)
		data, err := render.Render(ctx, d, f, ropts)
		if err != nil {
			return fmt.Errorf("render %s: %w", f, err)
		}

		path := outputPath(opts, input, f)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		prog.done("rendered", "format", f, "bytes", len(data))
		written = append(written, path)
	}

	printSuccess("Rendered %d file(s)", len(written))
	for _, p := range written {
		printFile(p)
	}
	return nil
}
