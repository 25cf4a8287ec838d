package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/FaYMan2/terdel/pkg/pipeline"
	"github.com/FaYMan2/terdel/pkg/schema"
)

// tablesCommand creates the tables command printing a schema summary.
func (c *CLI) tablesCommand() *cobra.Command {
	var (
		src     sourceFlags
		columns bool
	)

	cmd := &cobra.Command{
		Use:   "tables [table...]",
		Short: "Print tables, keys and foreign-key targets",
		Example: `  terdel tables
  terdel tables orders order_items --columns`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTables(cmd.Context(), src, args, columns)
		},
	}

	src.register(cmd)
	cmd.Flags().BoolVar(&columns, "columns", false, "list the columns of each table")

	return cmd
}

func (c *CLI) runTables(ctx context.Context, src sourceFlags, only []string, columns bool) error {
	backend, label, err := c.openBackend(ctx, src)
	if err != nil {
		return err
	}
	defer backend.Close()

	prog := newProgress(c.Logger)
	raw, err := pipeline.Load(ctx, backend, pipeline.LoadOptions{
		Concurrency: c.cfg.Fetch.Concurrency,
		Label:       label,
	})
	if err != nil {
		return err
	}
	res := raw.Assemble(ctx)
	prog.done("loaded schema", "tables", len(res.Tables))

	tables := filterTables(res.Tables, only)
	if len(only) > 0 && len(tables) == 0 {
		return fmt.Errorf("no table named %s", strings.Join(only, ", "))
	}

	fmt.Fprintln(stdout, StyleTitle.Render(label))
	fmt.Fprintln(stdout, summaryTable(tables))
	if columns {
		for _, t := range tables {
			printNewline()
			fmt.Fprintln(stdout, StyleHighlight.Render(t.Name))
			fmt.Fprintln(stdout, columnTable(t.Columns, -1))
		}
	}
	for _, f := range res.Failed {
		printWarning("%s: %v", f.Table, f.Err)
	}
	return nil
}

// filterTables keeps the named tables, or all of them when names is empty.
func filterTables(tables []schema.Table, names []string) []schema.Table {
	if len(names) == 0 {
		return tables
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []schema.Table
	for _, t := range tables {
		if want[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

var headerStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

// summaryTable renders one row per table: column count, primary key and
// foreign-key targets.
func summaryTable(tables []schema.Table) string {
	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		var pk, refs []string
		for _, col := range t.Columns {
			if col.IsPrimary {
				pk = append(pk, col.Name)
			}
			if col.IsForeignKey {
				refs = append(refs, *col.TargetTable)
			}
		}
		rows = append(rows, []string{
			t.Name,
			fmt.Sprint(len(t.Columns)),
			orDash(strings.Join(pk, ", ")),
			orDash(strings.Join(uniq(refs), ", ")),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Table", "Columns", "Primary key", "References").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 1:
				return StyleNumber
			case col == 3:
				return styleFK
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// columnTable renders the columns of one table. The row at highlight, if
// any, is drawn in the selection style.
func columnTable(cols []schema.Column, highlight int) string {
	rows := make([][]string, 0, len(cols))
	for _, col := range cols {
		rows = append(rows, []string{col.Name, col.Type, keyMarkers(col), target(col)})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Column", "Type", "Keys", "References").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row == highlight:
				return listSelectedStyle
			case col == 2 && cols[row].IsPrimary:
				return stylePK
			case col == 3:
				return styleFK
			case col == 1:
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// keyMarkers lists the key flags of a column, e.g. "PK ID".
func keyMarkers(c schema.Column) string {
	var m []string
	if c.IsPrimary {
		m = append(m, "PK")
	}
	if c.IsIdentity {
		m = append(m, "ID")
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

// target formats a foreign-key target as "table.column".
func target(c schema.Column) string {
	if !c.IsForeignKey {
		return ""
	}
	return *c.TargetTable + "." + *c.TargetColumn
}

func uniq(s []string) []string {
	seen := make(map[string]bool, len(s))
	out := s[:0]
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
