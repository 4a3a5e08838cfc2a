package exchange

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExportLongCSV(t *testing.T) {
	m := seedModel(t)
	path := filepath.Join(t.TempDir(), "model.csv")
	if err := ExportLongCSV(m, path, ExportOptions{}); err != nil {
		t.Fatalf("ExportLongCSV: %v", err)
	}

	want := [][]string{
		{"entity_class", "entity_id", "attribute_id", "attribute_value", "attribute_unit", "attribute_provenance", "relation_type", "relation_id"},
		{"Generator", "g1", "capacity", "450", "MW", "", "", ""},
		{"Generator", "g1", "online", "true", "", "", "", ""},
		{"Generator", "g1", "site_ref", "n1", "", "", "", ""},
		{"Generator", "g1", "slots", "4", "", "", "", ""},
		{"Generator", "g1", "", "", "", "", "node", "n1"},
		{"Generator", "g2", "capacity", "120.5", "MW", "", "", ""},
		{"Grid", "grid1", "", "", "", "", "members", "n1"},
		{"Grid", "grid1", "", "", "", "", "members", "g1"},
		{"Grid", "grid1", "", "", "", "", "members", "g2"},
		{"Grid", "gridEmpty", "__exists__", "", "", "", "", ""},
		{"Node", "n1", "name", "North", "", "", "", ""},
		{"Node", "n1", "voltage", "380", "kV", "", "", ""},
		{"Node", "n2", "name", "South", "", "", "", ""},
	}
	got := readCSV(t, path)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("long CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestImportLongCSV(t *testing.T) {
	src := seedModel(t)
	path := filepath.Join(t.TempDir(), "model.csv")
	if err := ExportLongCSV(src, path, ExportOptions{}); err != nil {
		t.Fatalf("ExportLongCSV: %v", err)
	}

	m := testModel(t)
	sum, err := ImportLongCSV(m, path, ImportOptions{})
	if err != nil {
		t.Fatalf("ImportLongCSV: %v", err)
	}
	if sum.CreatedEntities != 6 {
		t.Errorf("CreatedEntities = %d, want 6", sum.CreatedEntities)
	}
	wantRows := map[string]int{"Generator": 6, "Grid": 4, "Node": 3}
	if diff := cmp.Diff(wantRows, sum.PerClassRows); diff != "" {
		t.Errorf("PerClassRows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(dumpModel(src), dumpModel(m)); diff != "" {
		t.Errorf("round trip mismatch (-src +imported):\n%s", diff)
	}
}

func TestImportLongMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.csv")
	writeCSV(t, path, [][]string{
		{"entity_class", "entity_id", "attribute_id", "attribute_value"},
		{"Node", "n1", "name", "North"},
	})

	m := testModel(t)
	_, err := ImportLongCSV(m, path, ImportOptions{})
	if err == nil || !strings.Contains(err.Error(), `missing column "relation_type"`) {
		t.Fatalf("err = %v, want missing column", err)
	}
}

func TestImportLongUnknownsCarryLineNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.csv")
	writeCSV(t, path, [][]string{
		{"entity_class", "entity_id", "attribute_id", "attribute_value", "relation_type", "relation_id"},
		{"Widget", "w1", "size", "3", "", ""},
		{"Node", "n1", "colour", "red", "", ""},
		{"Node", "n1", "name", "North", "", ""},
		{"Node", "n1", "", "", "feeds", "n2"},
	})

	m := testModel(t)
	_, err := ImportLongCSV(m, path, ImportOptions{StrictUnknown: true})
	if err == nil || !strings.Contains(err.Error(), `line 2: unknown class "Widget"`) {
		t.Fatalf("strict err = %v, want line 2 unknown class", err)
	}

	m = testModel(t)
	sum, err := ImportLongCSV(m, path, ImportOptions{})
	if err != nil {
		t.Fatalf("lenient import: %v", err)
	}
	wantUnknowns := []UnknownField{
		{Class: "Widget", EntityID: "w1", Field: "entity_class", Reason: "unknown class", Line: 2},
		{Class: "Node", EntityID: "n1", Field: "colour", Reason: "unknown attribute", Line: 3},
		{Class: "Node", EntityID: "n1", Field: "feeds", Reason: "unknown relation", Line: 5},
	}
	if diff := cmp.Diff(wantUnknowns, sum.Unknowns); diff != "" {
		t.Errorf("Unknowns mismatch (-want +got):\n%s", diff)
	}
	ent, _ := m.Entity("n1")
	if av, _ := ent.Attribute("name"); av.Value != "North" {
		t.Errorf("name = %v, want North", av.Value)
	}
}

func TestImportLongCommaSeparatedTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.csv")
	writeCSV(t, path, [][]string{
		{"entity_class", "entity_id", "attribute_id", "attribute_value", "relation_type", "relation_id"},
		{"Grid", "grid1", "", "", "members", "n1, n2"},
	})

	m := testModel(t)
	sum, err := ImportLongCSV(m, path, ImportOptions{CreateMissingRefs: true})
	if err != nil {
		t.Fatalf("ImportLongCSV: %v", err)
	}
	if sum.SetRelations != 2 || sum.CreatedEntities != 3 {
		t.Errorf("summary = %+v, want 2 relations and grid1 plus two shells", sum)
	}
	grid, _ := m.Entity("grid1")
	if diff := cmp.Diff([]string{"n1", "n2"}, grid.RelationTargets("members")); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
}
