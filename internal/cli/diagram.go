package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FaYMan2/terdel/pkg/diagram"
	"github.com/FaYMan2/terdel/pkg/pipeline"
)

// diagramOpts holds the command-line flags for the diagram command.
type diagramOpts struct {
	source  sourceFlags
	output  string  // diagram JSON path, "-" for stdout
	xStep   float64 // horizontal distance between columns
	yStep   float64 // vertical distance between bands
	noCache bool
	refresh bool
}

// diagramCommand creates the diagram command, which introspects a schema
// and writes the positioned diagram as JSON.
func (c *CLI) diagramCommand() *cobra.Command {
	var opts diagramOpts

	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Build a positioned diagram from a database or API",
		Long: `Introspect a schema, assemble its tables and foreign keys, and lay the
tables out left to right. The result is written as JSON and can be drawn
with "terdel render" or loaded by the browser editor.`,
		Example: `  terdel diagram --dsn postgres://localhost/shop -o shop.json
  terdel diagram --api http://localhost:8080 -o - | jq .positions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDiagram(cmd.Context(), opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "diagram.json", `output file ("-" for stdout)`)
	cmd.Flags().Float64Var(&opts.xStep, "x-step", 0, "horizontal spacing between columns (default 500)")
	cmd.Flags().Float64Var(&opts.yStep, "y-step", 0, "vertical spacing between bands (default 300)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the diagram cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "rebuild even when a cached diagram exists")

	return cmd
}

func (c *CLI) runDiagram(ctx context.Context, opts diagramOpts) error {
	d, cached, err := c.buildDiagram(ctx, opts.source, c.pipelineOptions(opts.source, opts.xStep, opts.yStep), opts.noCache, opts.refresh)
	if err != nil {
		return err
	}

	if opts.output == "-" {
		data, err := diagram.Marshal(d)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}

	if err := diagram.WriteFile(d, opts.output); err != nil {
		return err
	}
	printSuccess("Diagram written")
	printFile(opts.output)
	printDiagramStats(d, cached)
	printNewline()
	printNextStep("Render it", "terdel render "+opts.output)
	return nil
}

// buildDiagram opens the selected source and runs the pipeline once.
func (c *CLI) buildDiagram(ctx context.Context, src sourceFlags, popts pipeline.Options, noCache, refresh bool) (*diagram.Diagram, bool, error) {
	backend, label, err := c.openBackend(ctx, src)
	if err != nil {
		return nil, false, err
	}
	defer backend.Close()

	runner, err := c.newRunner(ctx, backend, label, noCache)
	if err != nil {
		return nil, false, err
	}
	defer runner.Close()

	popts.Refresh = refresh
	var spinner *Spinner
	if isTerminal(os.Stderr) {
		spinner = newSpinner(ctx, "Reading schema from "+label)
		spinner.Start()
	}
	d, cached, err := runner.Build(ctx, popts)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return nil, false, err
	}

	for _, f := range d.Failed {
		printWarning("%s: %s", f.Table, f.Error)
	}
	return d, cached, nil
}

func printDiagramStats(d *diagram.Diagram, cached bool) {
	printStats(diagramStats{
		tables:     len(d.Tables),
		edges:      len(d.Edges),
		unresolved: len(d.Unresolved),
		failed:     len(d.Failed),
		cached:     cached,
	})
}

// isTerminal reports whether f is attached to a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
