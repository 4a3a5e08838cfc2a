// Package storage snapshots models into SQLite files. Each concrete
// class maps to one table in a wide layout: entity_id as primary key,
// one typed column per attribute with unit and provenance companion
// columns, one TEXT column per relation.
package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cesdm/modelkit/core/model"
	"github.com/cesdm/modelkit/core/schema"
)

type columnKind int

const (
	columnID columnKind = iota
	columnValue
	columnUnit
	columnProv
	columnRelation
)

// column is one table column derived from a class definition. Field
// names the attribute or relation the column serves; it is empty for
// the entity_id column.
type column struct {
	Name  string
	Type  string
	Kind  columnKind
	Field string
}

// classColumns derives the column layout of a class table. The layout
// is a pure function of the resolved class, so snapshot and restore
// agree on column order without introspecting the database.
func classColumns(ec *schema.EntityClass) []column {
	cols := []column{{Name: "entity_id", Type: "TEXT", Kind: columnID}}

	for _, an := range ec.AttributeNames() {
		ad := ec.Attributes[an]
		cols = append(cols, column{Name: an, Type: sqlType(ad.Type), Kind: columnValue, Field: an})
		if ad.Unit != nil {
			cols = append(cols, column{Name: an + "__unit", Type: "TEXT", Kind: columnUnit, Field: an})
		}
		cols = append(cols, column{Name: an + "__prov", Type: "TEXT", Kind: columnProv, Field: an})
	}

	for _, rn := range ec.RelationNames() {
		cols = append(cols, column{Name: rn, Type: "TEXT", Kind: columnRelation, Field: rn})
	}
	return cols
}

func sqlType(t schema.AttrType) string {
	switch t {
	case schema.AttrFloat:
		return "REAL"
	case schema.AttrInteger, schema.AttrBoolean:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL generates the CREATE TABLE statement for a class.
// Attribute columns carry no NOT NULL or CHECK constraints: the model
// accepts values the validator later reports, and a snapshot must
// accept whatever the model holds.
func BuildCreateTableSQL(ec *schema.EntityClass) string {
	cols := classColumns(ec)
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		def := quoteIdent(c.Name) + " " + c.Type
		if c.Kind == columnID {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		quoteIdent(ec.Name), strings.Join(defs, ",\n  "))
}

func buildInsertSQL(ec *schema.EntityClass, cols []column) string {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(ec.Name), strings.Join(names, ", "), strings.Join(marks, ", "))
}

func buildSelectSQL(ec *schema.EntityClass, cols []column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(names, ", "), quoteIdent(ec.Name), quoteIdent("entity_id"))
}

// quoteIdent quotes a SQL identifier. Class, attribute and relation
// names come from schema files and are not restricted to identifier
// characters.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// rowValues builds the bind values for one entity in layout order.
// Absent and empty attributes bind NULL, as do their unit and
// provenance companions; relations with no targets bind NULL.
func rowValues(ec *schema.EntityClass, cols []column, ent *model.Entity) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		switch c.Kind {
		case columnID:
			out[i] = ent.ID()
		case columnValue:
			if av, ok := ent.Attribute(c.Field); ok && !model.IsEmpty(av.Value) {
				out[i] = dbValue(av.Value)
			}
		case columnUnit:
			if av, ok := ent.Attribute(c.Field); ok && !model.IsEmpty(av.Value) && av.Unit != "" {
				out[i] = av.Unit
			}
		case columnProv:
			if av, ok := ent.Attribute(c.Field); ok && !model.IsEmpty(av.Value) && av.ProvenanceRef != "" {
				out[i] = av.ProvenanceRef
			}
		case columnRelation:
			if targets := storedTargets(ent, c.Field); len(targets) > 0 {
				out[i] = relationValue(targets)
			}
		}
	}
	return out
}

// dbValue converts a stored attribute value to its database
// representation. Booleans become 0/1 integers; structured values are
// JSON-encoded into TEXT, mirroring the CSV cell encoding.
func dbValue(v any) any {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return x
	case int64:
		return x
	case int:
		return int64(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

// fromDB normalizes a scanned database value. Text may surface as
// []byte depending on the driver's column affinity handling.
func fromDB(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// relationValue encodes a target list for a relation column: a single
// target as the bare id, several as a JSON array.
func relationValue(targets []string) string {
	if len(targets) == 1 {
		return targets[0]
	}
	b, err := json.Marshal(targets)
	if err != nil {
		return strings.Join(targets, ",")
	}
	return string(b)
}

// decodeTargets reverses relationValue.
func decodeTargets(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if strings.HasPrefix(cell, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(cell), &arr); err == nil {
			out := make([]string, 0, len(arr))
			for _, v := range arr {
				if v == nil {
					continue
				}
				if s := strings.TrimSpace(fmt.Sprintf("%v", v)); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return []string{cell}
}

func storedTargets(ent *model.Entity, name string) []string {
	var out []string
	for _, t := range ent.RelationTargets(name) {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}
