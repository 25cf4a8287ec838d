package render

import (
	"fmt"
	"strings"

	"github.com/FaYMan2/terdel/pkg/schema"
)

const (
	maxJunctionTableColumns = 6
	minJunctionTableFKs     = 2
)

// Mermaid relationship notations.
const (
	OneToOne   = "||--||"
	OneToMany  = "||--o{"
	ManyToMany = "}o--o{"
)

// Relationship is a Mermaid relationship between two tables.
type Relationship struct {
	From string
	To   string
	Type string
}

// ToMermaid returns a Mermaid erDiagram for tables.
func ToMermaid(tables []schema.Table) string {
	var sb strings.Builder
	sb.WriteString("erDiagram\n")

	if rels := Relationships(tables); len(rels) > 0 {
		seen := make(map[string]bool)
		for _, rel := range rels {
			key := rel.From + ":" + rel.Type + ":" + rel.To
			if seen[key] {
				continue
			}
			seen[key] = true
			// Mermaid requires a label; an empty one hides it.
			fmt.Fprintf(&sb, "    %s %s %s : \"\"\n", mermaidName(rel.From), rel.Type, mermaidName(rel.To))
		}
		sb.WriteString("\n")
	}

	for _, t := range tables {
		fmt.Fprintf(&sb, "    %s {\n", mermaidName(t.Name))
		for _, c := range t.Columns {
			var annotations string
			if c.IsPrimary {
				annotations = " PK"
			}
			if c.IsForeignKey {
				annotations += " FK"
			}
			fmt.Fprintf(&sb, "        %s %s%s\n", SimplifyDataType(c.Type), c.Name, annotations)
		}
		sb.WriteString("    }\n\n")
	}
	return sb.String()
}

// Relationships derives Mermaid relationships from foreign keys. Junction
// tables produce one many-to-many relationship per pair of referenced tables.
func Relationships(tables []schema.Table) []Relationship {
	var rels []Relationship
	for _, t := range tables {
		fks := foreignKeyColumns(t)
		if isJunction(t, fks) {
			for i := 0; i < len(fks); i++ {
				for j := i + 1; j < len(fks); j++ {
					rels = append(rels, Relationship{From: *fks[i].TargetTable, To: *fks[j].TargetTable, Type: ManyToMany})
				}
			}
			continue
		}
		for _, c := range fks {
			typ := OneToMany
			if c.IsUnique {
				typ = OneToOne
			}
			rels = append(rels, Relationship{From: t.Name, To: *c.TargetTable, Type: typ})
		}
	}
	return rels
}

func foreignKeyColumns(t schema.Table) []schema.Column {
	var out []schema.Column
	for _, c := range t.Columns {
		if _, _, ok := c.Target(); ok {
			out = append(out, c)
		}
	}
	return out
}

// isJunction reports whether t only links other tables: at least two
// foreign keys, all of them part of the primary key, and few columns.
func isJunction(t schema.Table, fks []schema.Column) bool {
	if len(fks) < minJunctionTableFKs || len(t.Columns) > maxJunctionTableColumns {
		return false
	}
	primary := 0
	for _, c := range t.Columns {
		if c.IsPrimary {
			primary++
		}
	}
	if primary < minJunctionTableFKs {
		return false
	}
	for _, c := range fks {
		if !c.IsPrimary {
			return false
		}
	}
	return true
}

// mermaidName upper-cases a table name and replaces characters Mermaid
// entity names do not accept.
func mermaidName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

// SimplifyDataType shortens PostgreSQL type names for display.
func SimplifyDataType(dataType string) string {
	dt := strings.ToLower(dataType)

	switch {
	case dt == "integer":
		return "int"
	case dt == "bigint", dt == "smallint", dt == "text", dt == "date",
		dt == "boolean", dt == "real", dt == "json", dt == "jsonb",
		dt == "uuid", dt == "bytea":
		return dt
	case strings.HasPrefix(dt, "character varying"):
		return "varchar"
	case strings.HasPrefix(dt, "character"):
		return "char"
	case strings.HasPrefix(dt, "timestamp without time zone"):
		return "timestamp"
	case strings.HasPrefix(dt, "timestamp with time zone"):
		return "timestamptz"
	case strings.HasPrefix(dt, "time without time zone"):
		return "time"
	case strings.HasPrefix(dt, "numeric"):
		return "numeric"
	case strings.HasPrefix(dt, "decimal"):
		return "decimal"
	case dt == "double precision":
		return "double"
	case strings.HasPrefix(dt, "array"), strings.HasSuffix(dt, "[]"):
		return "array"
	case dataType == "":
		return "unknown"
	default:
		// Mermaid attribute types cannot contain spaces or parentheses.
		return strings.NewReplacer(" ", "_", "(", "_", ")", "", ",", "_").Replace(dataType)
	}
}
