package exchange

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return records
}

func writeCSV(t *testing.T, path string, records [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		t.Fatal(err)
	}
	w.Flush()
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExportNarrowCSV(t *testing.T) {
	m := seedModel(t)
	dir := t.TempDir()
	if err := ExportNarrowCSV(m, dir, ExportOptions{}); err != nil {
		t.Fatalf("ExportNarrowCSV: %v", err)
	}

	want := [][]string{
		{"entity_id", "attribute", "value", "relation"},
		{"g1", "capacity", "450", ""},
		{"g1", "online", "true", ""},
		{"g1", "site_ref", "n1", "Node"},
		{"g1", "slots", "4", ""},
		{"g1", "node", "n1", "Node"},
		{"g2", "capacity", "120.5", ""},
	}
	got := readCSV(t, filepath.Join(dir, "Generator.csv"))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Generator.csv mismatch (-want +got):\n%s", diff)
	}

	grid := readCSV(t, filepath.Join(dir, "Grid.csv"))
	wantGrid := [][]string{
		{"entity_id", "attribute", "value", "relation"},
		{"grid1", "members", "n1", "Node"},
		{"grid1", "members", "g1", "Node"},
		{"grid1", "members", "g2", "Node"},
		{"gridEmpty", "__exists__", "", ""},
	}
	if diff := cmp.Diff(wantGrid, grid); diff != "" {
		t.Errorf("Grid.csv mismatch (-want +got):\n%s", diff)
	}
}

func TestExportNarrowOmitPlaceholders(t *testing.T) {
	m := seedModel(t)
	dir := t.TempDir()
	if err := ExportNarrowCSV(m, dir, ExportOptions{OmitPlaceholders: true}); err != nil {
		t.Fatalf("ExportNarrowCSV: %v", err)
	}
	for _, rec := range readCSV(t, filepath.Join(dir, "Grid.csv")) {
		if rec[0] == "gridEmpty" {
			t.Error("placeholder row present despite OmitPlaceholders")
		}
	}
}

func TestExportNarrowEmptyModel(t *testing.T) {
	m := testModel(t)
	dir := t.TempDir()
	if err := ExportNarrowCSV(m, dir, ExportOptions{}); err != nil {
		t.Fatalf("ExportNarrowCSV: %v", err)
	}
	// Every class gets a file with at least the header.
	for _, class := range []string{"Node", "Generator", "Grid"} {
		records := readCSV(t, filepath.Join(dir, class+".csv"))
		if len(records) != 1 {
			t.Errorf("%s.csv has %d records, want header only", class, len(records))
		}
	}
}

func TestImportNarrowCSV(t *testing.T) {
	src := seedModel(t)
	dir := t.TempDir()
	if err := ExportNarrowCSV(src, dir, ExportOptions{}); err != nil {
		t.Fatalf("ExportNarrowCSV: %v", err)
	}

	m := testModel(t)
	sum, err := ImportNarrowCSV(m, dir, ImportOptions{})
	if err != nil {
		t.Fatalf("ImportNarrowCSV: %v", err)
	}
	if sum.CreatedEntities != 6 {
		t.Errorf("CreatedEntities = %d, want 6", sum.CreatedEntities)
	}
	if sum.SetAttributes != 8 || sum.SetRelations != 4 {
		t.Errorf("sets = %d attrs / %d relations, want 8 / 4", sum.SetAttributes, sum.SetRelations)
	}

	// Placeholder rows recreate fieldless entities.
	if _, ok := m.Entity("gridEmpty"); !ok {
		t.Error("gridEmpty lost in round trip")
	}
	if diff := cmp.Diff(dumpModel(src), dumpModel(m)); diff != "" {
		t.Errorf("round trip mismatch (-src +imported):\n%s", diff)
	}
}

func TestImportNarrowForwardReference(t *testing.T) {
	// Grid.csv sorts before Node.csv; its relation rows point at
	// entities created from the later file.
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "Grid.csv"), [][]string{
		{"entity_id", "attribute", "value", "relation"},
		{"grid1", "members", "n1", "Node"},
	})
	writeCSV(t, filepath.Join(dir, "Node.csv"), [][]string{
		{"entity_id", "attribute", "value", "relation"},
		{"n1", "name", "North", ""},
	})

	m := testModel(t)
	sum, err := ImportNarrowCSV(m, dir, ImportOptions{})
	if err != nil {
		t.Fatalf("ImportNarrowCSV: %v", err)
	}
	if sum.CreatedEntities != 2 {
		t.Errorf("CreatedEntities = %d, want 2", sum.CreatedEntities)
	}
	ent, ok := m.Entity("n1")
	if !ok || ent.Class() != "Node" {
		t.Fatalf("n1 = %v/%v, want Node created from its own file", ent, ok)
	}
}

func TestImportNarrowRelationMetaColumn(t *testing.T) {
	// A target id landing in the relation column instead of the value
	// column is still picked up, as long as it is not the class echo.
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "Grid.csv"), [][]string{
		{"entity_id", "attribute", "value", "relation"},
		{"grid1", "members", "", "n1"},
	})

	m := testModel(t)
	mustAdd(t, m, "Node", "n1")
	if _, err := ImportNarrowCSV(m, dir, ImportOptions{}); err != nil {
		t.Fatalf("ImportNarrowCSV: %v", err)
	}
	grid, _ := m.Entity("grid1")
	if diff := cmp.Diff([]string{"n1"}, grid.RelationTargets("members")); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
}

func TestImportNarrowMissingTarget(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "Grid.csv"), [][]string{
		{"entity_id", "attribute", "value", "relation"},
		{"grid1", "members", "", ""},
	})

	m := testModel(t)
	_, err := ImportNarrowCSV(m, dir, ImportOptions{})
	if err == nil || !strings.Contains(err.Error(), "missing target id") {
		t.Fatalf("err = %v, want missing target id", err)
	}
}

func TestImportNarrowUnknowns(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "Widget.csv"), [][]string{
		{"entity_id", "attribute", "value", "relation"},
		{"w1", "size", "3", ""},
	})
	writeCSV(t, filepath.Join(dir, "Node.csv"), [][]string{
		{"entity_id", "attribute", "value", "relation"},
		{"n5", "colour", "red", ""},
		{"n5", "name", "Fifth", ""},
	})

	m := testModel(t)
	_, err := ImportNarrowCSV(m, dir, ImportOptions{StrictUnknown: true})
	if err == nil || !strings.Contains(err.Error(), `unknown class "Widget"`) {
		t.Fatalf("strict err = %v, want unknown class", err)
	}

	m = testModel(t)
	sum, err := ImportNarrowCSV(m, dir, ImportOptions{})
	if err != nil {
		t.Fatalf("lenient import: %v", err)
	}
	if len(sum.Unknowns) != 2 {
		t.Fatalf("Unknowns = %+v, want unknown class and unknown attribute", sum.Unknowns)
	}
	ent, _ := m.Entity("n5")
	if av, _ := ent.Attribute("name"); av.Value != "Fifth" {
		t.Errorf("n5 name = %v, want Fifth", av.Value)
	}
}

func TestImportNarrowCreateMissingRefAttribute(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "Generator.csv"), [][]string{
		{"entity_id", "attribute", "value", "relation"},
		{"g9", "site_ref", "nZ", "Node"},
	})

	m := testModel(t)
	sum, err := ImportNarrowCSV(m, dir, ImportOptions{CreateMissingRefs: true})
	if err != nil {
		t.Fatalf("ImportNarrowCSV: %v", err)
	}
	if sum.CreatedEntities != 2 { // g9 plus the nZ shell
		t.Errorf("CreatedEntities = %d, want 2", sum.CreatedEntities)
	}
	shell, ok := m.Entity("nZ")
	if !ok || shell.Class() != "Node" {
		t.Fatalf("nZ shell = %v/%v, want Node", shell, ok)
	}
	g9, _ := m.Entity("g9")
	if av, _ := g9.Attribute("site_ref"); av.Value != "nZ" {
		t.Errorf("site_ref = %v, want nZ", av.Value)
	}
}

func TestImportNarrowMissingDirectory(t *testing.T) {
	m := testModel(t)
	_, err := ImportNarrowCSV(m, filepath.Join(t.TempDir(), "absent"), ImportOptions{})
	if err == nil || !strings.Contains(err.Error(), "scan import directory") {
		t.Fatalf("err = %v, want scan import directory", err)
	}
}
