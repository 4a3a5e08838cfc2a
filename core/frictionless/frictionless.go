// Package frictionless generates Frictionless Table Schemas for the
// CSV dialects and bundles the wide export into a datapackage.json.
// Schemas are written as <data file>.schema.json sidecars; the
// datapackage embeds them inline so the bundle stands alone.
package frictionless

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cesdm/modelkit/core/exchange"
	"github.com/cesdm/modelkit/core/model"
	"github.com/cesdm/modelkit/core/schema"
)

const tableSchemaURI = "https://frictionlessdata.io/schemas/table-schema.json"

// TableSchema is a Frictionless Table Schema document.
type TableSchema struct {
	SchemaURI   string       `json:"$schema"`
	Name        string       `json:"name"`
	Title       string       `json:"title"`
	Fields      []Field      `json:"fields"`
	PrimaryKey  []string     `json:"primaryKey,omitempty"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
}

// Field describes one CSV column.
type Field struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Description string       `json:"description,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Default     any          `json:"default,omitempty"`
	Meta        *FieldMeta   `json:"cesdm,omitempty"`
}

// Constraints carries the subset of Frictionless constraints the
// schema language can express.
type Constraints struct {
	Required bool     `json:"required,omitempty"`
	Enum     []any    `json:"enum,omitempty"`
	Minimum  *float64 `json:"minimum,omitempty"`
	Maximum  *float64 `json:"maximum,omitempty"`
	Pattern  string   `json:"pattern,omitempty"`
}

// FieldMeta is the vendor extension block for unit and presentation
// metadata that plain Table Schema has no slot for.
type FieldMeta struct {
	Unit  *UnitMeta `json:"unit,omitempty"`
	Group string    `json:"group,omitempty"`
	Order *int      `json:"order,omitempty"`
}

// UnitMeta mirrors the declared unit spec.
type UnitMeta struct {
	Default string   `json:"default,omitempty"`
	Enum    []string `json:"enum,omitempty"`
}

// ForeignKey links a relation column to another resource.
type ForeignKey struct {
	Fields    string      `json:"fields"`
	Reference FKReference `json:"reference"`
}

// FKReference names the referenced resource and column.
type FKReference struct {
	Resource string `json:"resource"`
	Fields   string `json:"fields"`
}

// Resource is one entry of a datapackage.
type Resource struct {
	Name        string       `json:"name"`
	Path        string       `json:"path"`
	Profile     string       `json:"profile"`
	Format      string       `json:"format"`
	Mediatype   string       `json:"mediatype"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Schema      *TableSchema `json:"schema"`
}

// Package is a datapackage.json document.
type Package struct {
	Profile   string     `json:"profile"`
	Name      string     `json:"name"`
	Resources []Resource `json:"resources"`
}

var slugPattern = regexp.MustCompile(`[^-a-z0-9._/]+`)

// Slugify lowercases a name and collapses everything outside the
// Frictionless name alphabet into hyphens.
func Slugify(s string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// NarrowSchema describes the narrow CSV of one class: the attribute
// column admits declared attribute names, relation names (relation
// target rows share the file) and the existence placeholder.
func NarrowSchema(ec *schema.EntityClass) *TableSchema {
	names := append(ec.AttributeNames(), ec.RelationNames()...)
	sort.Strings(names)

	attrEnum := make([]any, 0, len(names)+1)
	for _, n := range names {
		attrEnum = append(attrEnum, n)
	}
	attrEnum = append(attrEnum, exchange.PlaceholderAttribute)

	// classes the relation column may carry: attribute ref targets
	// plus first allowed classes of declared relations
	classSet := map[string]bool{}
	for _, ad := range ec.Attributes {
		if ad.Constraints.Ref != "" {
			classSet[ad.Constraints.Ref] = true
		}
	}
	for _, rd := range ec.Relations {
		if t := rd.Target(); t != "" {
			classSet[t] = true
		}
	}

	relField := Field{
		Name: "relation",
		Type: "string",
		Description: "Target class of the attribute's ref constraint or of the " +
			"relation named in the attribute column; otherwise empty.",
	}
	if len(classSet) > 0 {
		classes := make([]any, 0, len(classSet))
		for _, c := range sortedKeys(classSet) {
			classes = append(classes, c)
		}
		relField.Constraints = &Constraints{Enum: classes}
	}

	return &TableSchema{
		SchemaURI: tableSchemaURI,
		Name:      Slugify(ec.Name),
		Title:     fmt.Sprintf("Per-class narrow export: %s", ec.Name),
		Fields: []Field{
			{
				Name:        "entity_id",
				Type:        "string",
				Description: fmt.Sprintf("ID of the entity within class '%s'.", ec.Name),
				Constraints: &Constraints{Required: true},
			},
			{
				Name:        "attribute",
				Type:        "string",
				Description: "Attribute or relation name for this entity.",
				Constraints: &Constraints{Enum: attrEnum},
			},
			{
				Name: "value",
				Type: "string",
				Description: "Attribute value or relation target id; complex values " +
					"are JSON-encoded.",
			},
			relField,
		},
		PrimaryKey: []string{"entity_id", "attribute"},
	}
}

// WideSchema describes the wide CSV of one class. Single-valued
// relations with exactly one allowed target class become foreign keys
// against the target's resource.
func WideSchema(ec *schema.EntityClass) *TableSchema {
	fields := []Field{{
		Name:        "entity_id",
		Type:        "string",
		Description: fmt.Sprintf("ID of the entity within class '%s'.", ec.Name),
		Constraints: &Constraints{Required: true},
	}}

	var foreignKeys []ForeignKey
	for _, rn := range ec.RelationNames() {
		rd := ec.Relations[rn]
		f := Field{
			Name: rn,
			Type: "string",
			Description: fmt.Sprintf("Related entity id(s) for relation '%s' targeting class '%s'. "+
				"Multi-valued relations are encoded as a JSON array.", rn, rd.Target()),
		}
		if rd.IsRequired() {
			f.Constraints = &Constraints{Required: true}
		}
		fields = append(fields, f)

		if singleValued(rd) && len(rd.Targets) == 1 {
			foreignKeys = append(foreignKeys, ForeignKey{
				Fields:    rn,
				Reference: FKReference{Resource: Slugify(rd.Targets[0]), Fields: "entity_id"},
			})
		}
	}

	for _, an := range ec.AttributeNames() {
		ad := ec.Attributes[an]
		desc := ad.Description
		if desc == "" {
			desc = fmt.Sprintf("Attribute '%s' of class '%s'.", an, ec.Name)
		}
		if ad.Constraints.Ref != "" {
			desc += fmt.Sprintf(" (Relation to class '%s'.)", ad.Constraints.Ref)
		}

		f := Field{
			Name:        an,
			Type:        typeFor(ad.Type),
			Description: desc,
			Default:     ad.Default,
			Constraints: attributeConstraints(ad),
			Meta:        fieldMeta(ad),
		}
		fields = append(fields, f)
	}

	out := &TableSchema{
		SchemaURI:   tableSchemaURI,
		Name:        Slugify(ec.Name),
		Title:       fmt.Sprintf("Per-class wide export: %s", ec.Name),
		Fields:      fields,
		PrimaryKey:  []string{"entity_id"},
		ForeignKeys: foreignKeys,
	}
	return out
}

// LongSchema describes the single long CSV, enumerating every class,
// attribute and relation name the model's schema declares.
func LongSchema(rs *schema.Resolved, fileName string) *TableSchema {
	classes := rs.Names()
	attrSet := map[string]bool{exchange.PlaceholderAttribute: true}
	relSet := map[string]bool{}
	for _, cname := range classes {
		ec, ok := rs.Class(cname)
		if !ok {
			continue
		}
		for an := range ec.Attributes {
			attrSet[an] = true
		}
		for rn := range ec.Relations {
			relSet[rn] = true
		}
	}

	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return &TableSchema{
		SchemaURI: tableSchemaURI,
		Name:      Slugify(stem),
		Title:     fmt.Sprintf("Long export: %s", fileName),
		Fields: []Field{
			{
				Name:        "entity_class",
				Type:        "string",
				Description: "Name of the entity class.",
				Constraints: &Constraints{Required: true, Enum: toAny(classes)},
			},
			{
				Name:        "entity_id",
				Type:        "string",
				Description: "ID of the entity within the class.",
				Constraints: &Constraints{Required: true},
			},
			{
				Name:        "attribute_id",
				Type:        "string",
				Description: "Name of the attribute (empty when the row represents a relation).",
				Constraints: &Constraints{Enum: toAny(sortedKeys(attrSet))},
			},
			{
				Name:        "attribute_value",
				Type:        "string",
				Description: "Serialized attribute value (empty for relation rows).",
			},
			{
				Name:        "attribute_unit",
				Type:        "string",
				Description: "Unit of the attribute value, if any.",
			},
			{
				Name:        "attribute_provenance",
				Type:        "string",
				Description: "Provenance reference of the attribute value, if any.",
			},
			{
				Name:        "relation_type",
				Type:        "string",
				Description: "Relation name (empty for attribute rows).",
				Constraints: &Constraints{Enum: toAny(sortedKeys(relSet))},
			},
			{
				Name:        "relation_id",
				Type:        "string",
				Description: "Target entity id for the relation (empty for attribute rows).",
			},
		},
		PrimaryKey: []string{"entity_class", "entity_id", "attribute_id", "relation_type", "relation_id"},
	}
}

// ExportNarrowSchemas writes a <Class>.csv.schema.json sidecar for
// every class into dir.
func ExportNarrowSchemas(rs *schema.Resolved, dir string) error {
	for _, cname := range rs.Names() {
		ec, ok := rs.Class(cname)
		if !ok {
			continue
		}
		out := filepath.Join(dir, cname+".csv.schema.json")
		if err := writeJSON(out, NarrowSchema(ec)); err != nil {
			return err
		}
	}
	return nil
}

// ExportWideSchemas writes a <Class>_wide.csv.schema.json sidecar for
// every class into dir.
func ExportWideSchemas(rs *schema.Resolved, dir string) error {
	for _, cname := range rs.Names() {
		ec, ok := rs.Class(cname)
		if !ok {
			continue
		}
		out := filepath.Join(dir, exchange.WideFileName(cname)+".schema.json")
		if err := writeJSON(out, WideSchema(ec)); err != nil {
			return err
		}
	}
	return nil
}

// ExportLongSchema writes the sidecar schema for a long CSV at
// csvPath.
func ExportLongSchema(rs *schema.Resolved, csvPath string) error {
	return writeJSON(csvPath+".schema.json", LongSchema(rs, filepath.Base(csvPath)))
}

// DataSubdir is where the datapackage bundle keeps its CSV files.
const DataSubdir = "data"

// ExportDatapackage writes the wide CSV export plus sidecar schemas
// into dir/data and a datapackage.json into dir referencing every
// class resource with its schema inlined. It returns the path of the
// written datapackage.json.
func ExportDatapackage(m *model.Model, dir string) (string, error) {
	rs := m.Schema()
	dataDir := filepath.Join(dir, DataSubdir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create datapackage directory: %w", err)
	}

	if err := exchange.ExportWideCSV(m, dataDir, exchange.ExportOptions{}); err != nil {
		return "", err
	}
	if err := ExportWideSchemas(rs, dataDir); err != nil {
		return "", err
	}

	resources := make([]Resource, 0, len(rs.Names()))
	for _, cname := range rs.Names() {
		ec, ok := rs.Class(cname)
		if !ok {
			continue
		}
		resources = append(resources, Resource{
			Name:        Slugify(cname),
			Path:        path.Join(DataSubdir, exchange.WideFileName(cname)),
			Profile:     "tabular-data-resource",
			Format:      "csv",
			Mediatype:   "text/csv",
			Title:       cname,
			Description: ec.Description,
			Schema:      WideSchema(ec),
		})
	}

	pkg := Package{
		Profile:   "data-package",
		Name:      Slugify(filepath.Base(dir)),
		Resources: resources,
	}

	out := filepath.Join(dir, "datapackage.json")
	if err := writeJSON(out, pkg); err != nil {
		return "", err
	}
	return out, nil
}

func attributeConstraints(ad schema.AttributeDef) *Constraints {
	c := &Constraints{
		Required: ad.Required,
		Enum:     ad.Constraints.Enum,
		Minimum:  ad.Constraints.Minimum,
		Maximum:  ad.Constraints.Maximum,
		Pattern:  ad.Constraints.Pattern,
	}
	if !c.Required && c.Enum == nil && c.Minimum == nil && c.Maximum == nil && c.Pattern == "" {
		return nil
	}
	return c
}

func fieldMeta(ad schema.AttributeDef) *FieldMeta {
	m := &FieldMeta{Group: ad.Group, Order: ad.Order}
	if ad.Unit != nil {
		m.Unit = &UnitMeta{Default: ad.Unit.DefaultUnit(), Enum: ad.Unit.Allowed}
	}
	if m.Unit == nil && m.Group == "" && m.Order == nil {
		return nil
	}
	return m
}

// singleValued reports a declared cardinality of at most one.
func singleValued(rd schema.RelationDef) bool {
	switch strings.TrimSpace(rd.Cardinality) {
	case "1", "0..1", "1..1":
		return true
	}
	return false
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

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}
