package layout

import (
	"errors"
	"slices"

	"github.com/FaYMan2/terdel/pkg/schema"
)

// Default spacing between depth levels and between sibling bands.
const (
	DefaultXStep = 500
	DefaultYStep = 300
)

// ErrInvalidStep is returned by [Config.Validate] for non-positive spacing.
var ErrInvalidStep = errors.New("layout step must be positive")

// Config holds the spacing used by [Compute].
type Config struct {
	XStep float64 `json:"x_step" toml:"x_step"`
	YStep float64 `json:"y_step" toml:"y_step"`
}

// DefaultConfig returns the spacing used when none is configured.
func DefaultConfig() Config {
	return Config{XStep: DefaultXStep, YStep: DefaultYStep}
}

// Validate reports whether both steps are positive.
func (c Config) Validate() error {
	if c.XStep <= 0 || c.YStep <= 0 {
		return ErrInvalidStep
	}
	return nil
}

// Position is the top-left coordinate assigned to a table.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UnresolvedRef is a foreign-key column whose target table is not part of the
// laid-out set.
type UnresolvedRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Target string `json:"target"`
}

// Result is the output of [Compute].
type Result struct {
	Positions  map[string]Position `json:"positions"`
	Unresolved []UnresolvedRef     `json:"unresolved,omitempty"`
}

// Rank returns a copy of tables ordered by foreign-key count, descending.
// Tables with equal counts keep their relative input order.
func Rank(tables []schema.Table) []schema.Table {
	ranked := slices.Clone(tables)
	slices.SortStableFunc(ranked, func(a, b schema.Table) int {
		return b.ForeignKeyCount() - a.ForeignKeyCount()
	})
	return ranked
}

// Positions is a convenience wrapper returning only the position map.
func Positions(tables []schema.Table, cfg Config) map[string]Position {
	return Compute(tables, cfg).Positions
}

// frame is a pending placement on the work stack.
type frame struct {
	table int
	x, y  float64
}

// Compute assigns a position to every table. See the package documentation
// for the placement rules. Duplicate table names resolve to their first
// occurrence and share one position.
func Compute(tables []schema.Table, cfg Config) Result {
	res := Result{Positions: make(map[string]Position, len(tables))}
	if len(tables) == 0 {
		return res
	}

	ranked := Rank(tables)
	index := make(map[string]int, len(ranked))
	for i, t := range ranked {
		if _, dup := index[t.Name]; !dup {
			index[t.Name] = i
		}
	}

	visited := make([]bool, len(ranked))
	reported := make(map[UnresolvedRef]bool)
	var stack []frame

	bandY := 0.0
	for root := range ranked {
		if visited[index[ranked[root].Name]] {
			continue
		}

		stack = append(stack[:0], frame{table: index[ranked[root].Name], x: 0, y: bandY})
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[f.table] {
				continue
			}
			visited[f.table] = true

			t := ranked[f.table]
			res.Positions[t.Name] = Position{X: f.x, Y: f.y}

			children := foreignKeys(t)
			startY := f.y - cfg.YStep*float64(len(children)/2)
			// Push in reverse so the first child is expanded first.
			for slot := len(children) - 1; slot >= 0; slot-- {
				c := children[slot]
				target, ok := index[*c.TargetTable]
				if !ok {
					ref := UnresolvedRef{Table: t.Name, Column: c.Name, Target: *c.TargetTable}
					if !reported[ref] {
						reported[ref] = true
						res.Unresolved = append(res.Unresolved, ref)
					}
					continue
				}
				stack = append(stack, frame{
					table: target,
					x:     f.x + cfg.XStep,
					y:     startY + float64(slot)*cfg.YStep,
				})
			}
		}
		bandY += cfg.YStep
	}

	slices.SortStableFunc(res.Unresolved, compareRefs)
	return res
}

func foreignKeys(t schema.Table) []schema.Column {
	var out []schema.Column
	for _, c := range t.Columns {
		if c.IsForeignKey && c.TargetTable != nil {
			out = append(out, c)
		}
	}
	return out
}

func compareRefs(a, b UnresolvedRef) int {
	switch {
	case a.Table != b.Table:
		if a.Table < b.Table {
			return -1
		}
		return 1
	case a.Column != b.Column:
		if a.Column < b.Column {
			return -1
		}
		return 1
	}
	return 0
}
