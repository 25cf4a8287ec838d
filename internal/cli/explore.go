package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/FaYMan2/terdel/pkg/diagram"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// exploreCommand creates the explore command.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		src     sourceFlags
		file    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Browse tables, columns and foreign keys interactively",
		Example: `  terdel explore --dsn postgres://localhost/shop
  terdel explore --file shop.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var d *diagram.Diagram
			var err error
			if file != "" {
				d, err = diagram.ReadFile(file)
			} else {
				d, _, err = c.buildDiagram(ctx, src, c.pipelineOptions(src, 0, 0), noCache, false)
			}
			if err != nil {
				return err
			}
			if len(d.Tables) == 0 {
				printInfo("Schema has no tables")
				return nil
			}

			_, err = tea.NewProgram(NewExploreModel(d), tea.WithContext(ctx), tea.WithAltScreen()).Run()
			return err
		},
	}

	src.register(cmd)
	cmd.Flags().StringVar(&file, "file", "", "explore a diagram file instead of a live source")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the diagram cache")

	return cmd
}

// =============================================================================
// ExploreModel - Interactive schema browser
// =============================================================================

// ExploreModel is the bubbletea model of the explore command. The table list
// is shown until a table is opened; the column view then lets the user
// follow foreign keys to their target tables.
type ExploreModel struct {
	Diagram *diagram.Diagram
	Cursor  int // selected table
	Offset  int // first visible table
	Height  int // visible table rows

	Open   bool // column view is shown
	Column int  // selected column in the column view

	// History holds the tables left by following foreign keys.
	History []int
}

// NewExploreModel creates a model browsing d.
func NewExploreModel(d *diagram.Diagram) ExploreModel {
	return ExploreModel{Diagram: d, Height: 15}
}

func (m ExploreModel) Init() tea.Cmd {
	return nil
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "backspace", "left", "h":
			if !m.Open {
				if msg.String() == "esc" {
					return m, tea.Quit
				}
				return m, nil
			}
			m = m.back()
		case "up", "k":
			m = m.move(-1)
		case "down", "j":
			m = m.move(1)
		case "enter", "right", "l":
			if !m.Open {
				m.Open = true
				m.Column = 0
				return m, nil
			}
			m = m.follow()
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ExploreModel) move(delta int) ExploreModel {
	if m.Open {
		n := len(m.Diagram.Tables[m.Cursor].Columns)
		m.Column = clamp(m.Column+delta, 0, n-1)
		return m
	}
	m.Cursor = clamp(m.Cursor+delta, 0, len(m.Diagram.Tables)-1)
	m = m.scroll()
	return m
}

// scroll keeps the cursor inside the visible window.
func (m ExploreModel) scroll() ExploreModel {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m
}

// follow jumps to the target table of the selected foreign-key column.
// Unresolved targets are ignored.
func (m ExploreModel) follow() ExploreModel {
	cols := m.Diagram.Tables[m.Cursor].Columns
	if m.Column >= len(cols) || !cols[m.Column].IsForeignKey {
		return m
	}
	target := *cols[m.Column].TargetTable
	for i, t := range m.Diagram.Tables {
		if t.Name == target {
			m.History = append(m.History, m.Cursor)
			m.Cursor = i
			m.Column = 0
			return m.scroll()
		}
	}
	return m
}

// back returns to the previous table, or to the table list.
func (m ExploreModel) back() ExploreModel {
	if n := len(m.History); n > 0 {
		m.Cursor = m.History[n-1]
		m.History = m.History[:n-1]
		m.Column = 0
		return m.scroll()
	}
	m.Open = false
	return m
}

func (m ExploreModel) View() string {
	if m.Open {
		return m.columnView()
	}
	return m.tableView()
}

func (m ExploreModel) tableView() string {
	var b strings.Builder

	title := "Tables"
	if m.Diagram.Schema != "" {
		title += " in " + m.Diagram.Schema
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Diagram.Tables))
	for i := m.Offset; i < end; i++ {
		t := m.Diagram.Tables[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		pos := m.Diagram.Positions[t.Name]
		line := fmt.Sprintf("%s%-28s %3d cols  %s", cursor, t.Name, len(t.Columns),
			listDimStyle.Render(fmt.Sprintf("(%g, %g)", pos.X, pos.Y)))

		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Diagram.Tables))))
	return b.String()
}

func (m ExploreModel) columnView() string {
	var b strings.Builder
	t := m.Diagram.Tables[m.Cursor]

	crumbs := make([]string, 0, len(m.History)+1)
	for _, i := range m.History {
		crumbs = append(crumbs, m.Diagram.Tables[i].Name)
	}
	crumbs = append(crumbs, t.Name)

	b.WriteString(StyleTitle.Render(strings.Join(crumbs, " "+iconArrow+" ")))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ follow foreign key  esc back  q quit"))
	b.WriteString("\n\n")
	b.WriteString(columnTable(t.Columns, m.Column))
	b.WriteString("\n")

	var incoming []string
	for _, e := range m.Diagram.Edges {
		if e.To == t.Name {
			incoming = append(incoming, e.From+"."+e.FromColumn)
		}
	}
	if len(incoming) > 0 {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("Referenced by: " + strings.Join(incoming, ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
