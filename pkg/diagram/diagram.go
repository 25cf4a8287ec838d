package diagram

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/FaYMan2/terdel/pkg/layout"
	"github.com/FaYMan2/terdel/pkg/schema"
)

// FormatVersion is written into every diagram.
const FormatVersion = 1

// =============================================================================
// Diagram
// =============================================================================

// Diagram is a laid-out schema.
type Diagram struct {
	Version     int                        `json:"version" bson:"version"`
	Schema      string                     `json:"schema,omitempty" bson:"schema,omitempty"`
	Tables      []schema.Table             `json:"tables" bson:"tables"`
	Edges       []schema.Edge              `json:"edges" bson:"edges"`
	Positions   map[string]layout.Position `json:"positions" bson:"positions"`
	Unresolved  []layout.UnresolvedRef     `json:"unresolved,omitempty" bson:"unresolved,omitempty"`
	Failed      []FailedTable              `json:"failed,omitempty" bson:"failed,omitempty"`
	XStep       float64                    `json:"x_step" bson:"x_step"`
	YStep       float64                    `json:"y_step" bson:"y_step"`
	GeneratedAt time.Time                  `json:"generated_at" bson:"generated_at"`
}

// FailedTable names a table whose columns could not be loaded.
type FailedTable struct {
	Table string `json:"table" bson:"table"`
	Error string `json:"error" bson:"error"`
}

// Node is a table together with its position.
type Node struct {
	schema.Table
	Position layout.Position
}

// New builds a diagram from an assembly result and its layout.
func New(schemaName string, assembled schema.Result, laid layout.Result, cfg layout.Config) *Diagram {
	d := &Diagram{
		Version:     FormatVersion,
		Schema:      schemaName,
		Tables:      assembled.Tables,
		Edges:       schema.Edges(assembled.Tables),
		Positions:   laid.Positions,
		Unresolved:  laid.Unresolved,
		XStep:       cfg.XStep,
		YStep:       cfg.YStep,
		GeneratedAt: time.Now().UTC(),
	}
	if d.Tables == nil {
		d.Tables = []schema.Table{}
	}
	if d.Edges == nil {
		d.Edges = []schema.Edge{}
	}
	if d.Positions == nil {
		d.Positions = map[string]layout.Position{}
	}
	for _, f := range assembled.Failed {
		d.Failed = append(d.Failed, FailedTable{Table: f.Table, Error: f.Err.Error()})
	}
	return d
}

// Node returns the first table named name and its position.
func (d *Diagram) Node(name string) (Node, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return Node{Table: t, Position: d.Positions[name]}, true
		}
	}
	return Node{}, false
}

// Bounds returns the smallest rectangle containing every position.
func (d *Diagram) Bounds() (minX, minY, maxX, maxY float64) {
	first := true
	for _, p := range d.Positions {
		if first {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			first = false
			continue
		}
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// LayoutConfig returns the spacing the diagram was built with.
func (d *Diagram) LayoutConfig() layout.Config {
	return layout.Config{XStep: d.XStep, YStep: d.YStep}
}

// Validate checks that every table has a position.
func (d *Diagram) Validate() error {
	for _, t := range d.Tables {
		if _, ok := d.Positions[t.Name]; !ok {
			return fmt.Errorf("table %q has no position", t.Name)
		}
	}
	for _, t := range d.Tables {
		for _, c := range t.Columns {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("table %q: %w", t.Name, err)
			}
		}
	}
	return nil
}

// =============================================================================
// Serialization
// =============================================================================

// Marshal serializes a diagram to pretty-printed JSON.
func Marshal(d *Diagram) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Unmarshal parses and validates a diagram.
func Unmarshal(data []byte) (*Diagram, error) {
	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal diagram: %w", err)
	}
	if d.Version == 0 {
		d.Version = FormatVersion
	}
	if d.Version > FormatVersion {
		return nil, fmt.Errorf("unsupported diagram version %d", d.Version)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid diagram: %w", err)
	}
	return &d, nil
}

// WriteFile writes a diagram to a JSON file.
func WriteFile(d *Diagram, path string) error {
	data, err := Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile reads a diagram from a JSON file.
func ReadFile(path string) (*Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
