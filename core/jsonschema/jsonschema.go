// Package jsonschema generates a JSON Schema (draft 2020-12) describing
// the nested JSON export of a model: class names as top-level keys,
// entity ids one level down, attribute and relation items in their
// normalized list shapes. Validating an export against the generated
// schema checks both document structure and declared value rules.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cesdm/modelkit/core/schema"
)

// Schema is one JSON Schema node. Only the keywords the generator
// emits are modeled.
type Schema struct {
	SchemaURI   string `json:"$schema,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type  string `json:"type,omitempty"`
	Const string `json:"const,omitempty"`

	Properties           map[string]*Schema `json:"properties,omitempty"`
	PatternProperties    map[string]*Schema `json:"patternProperties,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
	Required             []string           `json:"required,omitempty"`

	Items    *Schema   `json:"items,omitempty"`
	AnyOf    []*Schema `json:"anyOf,omitempty"`
	AllOf    []*Schema `json:"allOf,omitempty"`
	Contains *Schema   `json:"contains,omitempty"`
	MinItems *int      `json:"minItems,omitempty"`
	MaxItems *int      `json:"maxItems,omitempty"`

	Enum    []any    `json:"enum,omitempty"`
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Default any      `json:"default,omitempty"`
}

// entityIDPattern admits any non-empty id without whitespace.
const entityIDPattern = `^[^\s]+$`

// Generate builds the document schema for every class in the resolved
// schema, abstract ones included since the store does not refuse them.
func Generate(rs *schema.Resolved) *Schema {
	root := &Schema{
		SchemaURI: "https://json-schema.org/draft/2020-12/schema",
		Title:     "Nested model export",
		Description: "JSON Schema for the nested JSON export of this model. " +
			"Top-level keys are class names; second-level keys are entity ids.",
		Type:                 "object",
		Properties:           map[string]*Schema{},
		AdditionalProperties: boolp(false),
	}

	for _, cname := range rs.Names() {
		ec, ok := rs.Class(cname)
		if !ok {
			continue
		}
		root.Properties[cname] = &Schema{
			Type:                 "object",
			Description:          fmt.Sprintf("Entities of class '%s', keyed by entity id.", cname),
			PatternProperties:    map[string]*Schema{entityIDPattern: entitySchema(cname, ec)},
			AdditionalProperties: boolp(false),
		}
	}
	return root
}

// Export writes the generated schema to path as indented JSON.
func Export(rs *schema.Resolved, path string) error {
	b, err := json.MarshalIndent(Generate(rs), "", "  ")
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}

func entitySchema(cname string, ec *schema.EntityClass) *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"attributes": attributesSchema(cname, ec),
			"relations":  relationsSchema(cname, ec),
		},
		Required:             []string{"attributes", "relations"},
		AdditionalProperties: boolp(false),
	}
}

// attributesSchema types the attribute item list: any declared item
// shape, plus a contains clause per required attribute.
func attributesSchema(cname string, ec *schema.EntityClass) *Schema {
	names := ec.AttributeNames()
	if len(names) == 0 {
		return &Schema{Type: "array", MaxItems: intp(0)}
	}

	out := &Schema{Type: "array", Items: &Schema{}}
	for _, an := range names {
		ad := ec.Attributes[an]
		out.Items.AnyOf = append(out.Items.AnyOf, attributeItem(cname, ad))
		if ad.Required {
			out.AllOf = append(out.AllOf, containsID(an))
		}
	}
	return out
}

func attributeItem(cname string, ad schema.AttributeDef) *Schema {
	value := &Schema{
		Type:        typeFor(ad.Type),
		Description: ad.Description,
		Enum:        ad.Constraints.Enum,
		Minimum:     ad.Constraints.Minimum,
		Maximum:     ad.Constraints.Maximum,
		Pattern:     ad.Constraints.Pattern,
		Default:     ad.Default,
	}
	if value.Description == "" {
		value.Description = fmt.Sprintf("Value of attribute '%s' of class '%s'.", ad.Name, cname)
	}

	unit := &Schema{
		Type:        "string",
		Description: fmt.Sprintf("Unit for attribute '%s' of class '%s'.", ad.Name, cname),
	}
	switch {
	case ad.Unit == nil:
	case len(ad.Unit.Allowed) > 0:
		unit.Enum = toAny(ad.Unit.Allowed)
		unit.Default = ad.Unit.Allowed[0]
	case ad.Unit.Default != "":
		unit.Enum = []any{ad.Unit.Default}
		unit.Default = ad.Unit.Default
	}

	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"id":    {Const: ad.Name},
			"value": value,
			"unit":  unit,
			"provenance_ref": {
				Type:        "string",
				Description: fmt.Sprintf("Provenance reference for attribute '%s' of class '%s'.", ad.Name, cname),
			},
		},
		Required:             []string{"id", "value"},
		AdditionalProperties: boolp(false),
	}
}

// relationsSchema types the relation item list; required relations
// gain a contains clause.
func relationsSchema(cname string, ec *schema.EntityClass) *Schema {
	names := ec.RelationNames()
	if len(names) == 0 {
		return &Schema{Type: "array", MaxItems: intp(0)}
	}

	out := &Schema{Type: "array", Items: &Schema{}}
	for _, rn := range names {
		rd := ec.Relations[rn]
		lo, hi := targetBounds(rd)
		out.Items.AnyOf = append(out.Items.AnyOf, relationItem(rd, lo, hi))
		if rd.IsRequired() {
			out.AllOf = append(out.AllOf, containsID(rn))
		}
	}
	return out
}

func relationItem(rd schema.RelationDef, lo int, hi *int) *Schema {
	targets := &Schema{
		Type: "array",
		Items: &Schema{
			Type:        "string",
			Description: fmt.Sprintf("ID of target class %s.", targetPhrase(rd)),
		},
	}
	if lo > 0 {
		targets.MinItems = intp(lo)
	}
	if hi != nil {
		targets.MaxItems = intp(*hi)
	}

	return &Schema{
		Type:        "object",
		Description: fmt.Sprintf("Relation to '%s' (cardinality %s).", rd.Target(), rd.CardinalityOrDefault()),
		Properties: map[string]*Schema{
			"id":                {Const: rd.Name},
			"target_entity_ids": targets,
		},
		Required:             []string{"id", "target_entity_ids"},
		AdditionalProperties: boolp(false),
	}
}

func targetPhrase(rd schema.RelationDef) string {
	switch len(rd.Targets) {
	case 0:
		return "any class (no target constraint)"
	case 1:
		return fmt.Sprintf("'%s'", rd.Targets[0])
	default:
		quoted := make([]string, len(rd.Targets))
		for i, t := range rd.Targets {
			quoted[i] = fmt.Sprintf("'%s'", t)
		}
		return "one of " + strings.Join(quoted, ", ")
	}
}

// containsID requires an item carrying the given id to be present.
func containsID(name string) *Schema {
	return &Schema{
		Contains: &Schema{
			Properties: map[string]*Schema{"id": {Const: name}},
			Required:   []string{"id"},
		},
	}
}

// targetBounds merges declared cardinality with min/max item
// constraints, keeping the stricter side. An undeclared cardinality
// imposes no bounds of its own.
func targetBounds(rd schema.RelationDef) (int, *int) {
	lo := 0
	var hi *int
	if rd.Cardinality != "" {
		c := rd.Bounds()
		lo, hi = c.Min, c.Max
	}
	if mi := rd.Constraints.MinItems; mi != nil && *mi > lo {
		lo = *mi
	}
	if ma := rd.Constraints.MaxItems; ma != nil && (hi == nil || *ma < *hi) {
		hi = ma
	}
	return lo, hi
}

func typeFor(t schema.AttrType) string {
	switch t {
	case schema.AttrFloat:
		return "number"
	case schema.AttrInteger:
		return "integer"
	case schema.AttrBoolean:
		return "boolean"
	default:
		return "string"
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func boolp(b bool) *bool { return &b }
func intp(i int) *int    { return &i }
