package jsonschema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cesdm/modelkit/core/schema"
)

const testSchema = `
entity_classes:
  Node:
    attributes:
      name:
        required: true
        value: { type: str }
      voltage:
        unit:
          type: str
          constraints: { enum: [kV, V] }
        value:
          type: float
          constraints: { minimum: 0, maximum: 500 }
  Line:
    relations:
      endpoint:
        target: Node
        cardinality: "2"
  Grid:
    relations:
      parts:
        target: [Node, Line]
        cardinality: "0..*"
`

func testResolved(t *testing.T) *schema.Resolved {
	t.Helper()
	set, err := schema.Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	rs, err := set.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return rs
}

func entityOf(t *testing.T, root *Schema, class string) *Schema {
	t.Helper()
	cs, ok := root.Properties[class]
	if !ok {
		t.Fatalf("class %s missing from schema", class)
	}
	es, ok := cs.PatternProperties[entityIDPattern]
	if !ok {
		t.Fatalf("class %s has no entity pattern", class)
	}
	return es
}

// itemFor finds the anyOf branch whose id const matches.
func itemFor(t *testing.T, list *Schema, name string) *Schema {
	t.Helper()
	if list.Items == nil {
		t.Fatalf("no items schema for %s", name)
	}
	for _, item := range list.Items.AnyOf {
		if id, ok := item.Properties["id"]; ok && id.Const == name {
			return item
		}
	}
	t.Fatalf("no item schema for %s", name)
	return nil
}

func TestGenerateRoot(t *testing.T) {
	root := Generate(testResolved(t))

	if root.SchemaURI != "https://json-schema.org/draft/2020-12/schema" {
		t.Errorf("$schema = %q", root.SchemaURI)
	}
	if root.Type != "object" {
		t.Errorf("type = %q, want object", root.Type)
	}
	if root.AdditionalProperties == nil || *root.AdditionalProperties {
		t.Error("root should forbid additional properties")
	}
	for _, class := range []string{"Node", "Line", "Grid"} {
		if _, ok := root.Properties[class]; !ok {
			t.Errorf("class %s missing", class)
		}
	}
}

func TestGenerateAttributeItems(t *testing.T) {
	root := Generate(testResolved(t))
	node := entityOf(t, root, "Node")

	attrs := node.Properties["attributes"]
	if attrs == nil || len(attrs.Items.AnyOf) != 2 {
		t.Fatalf("Node attributes schema = %+v, want 2 item shapes", attrs)
	}

	voltage := itemFor(t, attrs, "voltage")
	value := voltage.Properties["value"]
	if value.Type != "number" {
		t.Errorf("voltage value type = %q, want number", value.Type)
	}
	if value.Minimum == nil || *value.Minimum != 0 || value.Maximum == nil || *value.Maximum != 500 {
		t.Errorf("voltage bounds = %v..%v, want 0..500", value.Minimum, value.Maximum)
	}
	unit := voltage.Properties["unit"]
	if len(unit.Enum) != 2 || unit.Enum[0] != "kV" || unit.Default != "kV" {
		t.Errorf("voltage unit schema = %+v, want enum [kV V] defaulting to kV", unit)
	}

	// The required attribute shows up as a contains clause.
	if len(attrs.AllOf) != 1 || attrs.AllOf[0].Contains.Properties["id"].Const != "name" {
		t.Errorf("attributes allOf = %+v, want contains for name", attrs.AllOf)
	}
}

func TestGenerateRelationItems(t *testing.T) {
	root := Generate(testResolved(t))

	line := entityOf(t, root, "Line")
	rels := line.Properties["relations"]
	endpoint := itemFor(t, rels, "endpoint")
	targets := endpoint.Properties["target_entity_ids"]
	if targets.MinItems == nil || *targets.MinItems != 2 || targets.MaxItems == nil || *targets.MaxItems != 2 {
		t.Errorf("endpoint bounds = %v..%v, want 2..2", targets.MinItems, targets.MaxItems)
	}
	if len(rels.AllOf) != 1 {
		t.Errorf("endpoint should be required via contains, got %+v", rels.AllOf)
	}

	grid := entityOf(t, root, "Grid")
	parts := itemFor(t, grid.Properties["relations"], "parts")
	pt := parts.Properties["target_entity_ids"]
	if pt.MinItems != nil || pt.MaxItems != nil {
		t.Errorf("parts bounds = %v..%v, want unbounded", pt.MinItems, pt.MaxItems)
	}
	if got := pt.Items.Description; got != "ID of target class one of 'Node', 'Line'." {
		t.Errorf("parts target description = %q", got)
	}
	if len(grid.Properties["relations"].AllOf) != 0 {
		t.Error("optional relation should not be required")
	}

	// Grid declares no attributes: the list is pinned empty.
	attrs := grid.Properties["attributes"]
	if attrs.MaxItems == nil || *attrs.MaxItems != 0 {
		t.Errorf("Grid attributes schema = %+v, want maxItems 0", attrs)
	}
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.schema.json")
	if err := Export(testResolved(t), path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("exported schema is not valid JSON: %v", err)
	}
	if doc["$schema"] != "https://json-schema.org/draft/2020-12/schema" {
		t.Errorf("$schema = %v", doc["$schema"])
	}
	if b[len(b)-1] != '\n' {
		t.Error("exported file should end with a newline")
	}
}
