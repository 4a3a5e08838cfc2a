package exchange

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cesdm/modelkit/core/model"
	"github.com/cesdm/modelkit/core/schema"
)

// WideFileName returns the wide CSV file name for a class.
func WideFileName(class string) string { return class + "_wide.csv" }

// WideMetaFileName returns the wide+meta CSV file name for a class.
func WideMetaFileName(class string) string { return class + "_wide_meta.csv" }

// ExportWideCSV writes one wide CSV per class into dir, named
// <Class>_wide.csv: one row per entity, one column per relation and
// attribute. Multi-target relation cells are JSON arrays, structured
// attribute values are JSON-encoded inline. Rows for entities with no
// stored fields are kept unless OmitPlaceholders is set.
func ExportWideCSV(m *model.Model, dir string, opts ExportOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	rs := m.Schema()

	for _, class := range rs.Names() {
		ec, ok := rs.Class(class)
		if !ok {
			continue
		}

		header := []string{"entity_id"}
		header = append(header, ec.RelationNames()...)
		header = append(header, ec.AttributeNames()...)

		var rows [][]string
		for _, ent := range m.EntitiesOf(class) {
			row := make([]string, len(header))
			row[0] = ent.ID()
			wrote := false

			for i, rn := range ec.RelationNames() {
				targets := nonEmpty(ent.RelationTargets(rn))
				if len(targets) == 0 {
					continue
				}
				row[1+i] = relationCell(targets)
				wrote = true
			}

			offset := 1 + len(ec.RelationNames())
			for i, an := range ec.AttributeNames() {
				av, ok := ent.Attribute(an)
				if !ok || model.IsEmpty(av.Value) {
					continue
				}
				row[offset+i] = cellString(av.Value)
				wrote = true
			}

			if wrote || !opts.OmitPlaceholders {
				rows = append(rows, row)
			}
		}

		path := filepath.Join(dir, WideFileName(class))
		if err := writeCSVFile(path, header, rows); err != nil {
			return err
		}
	}
	return nil
}

// ExportWideMetaCSV writes one wide CSV per class into dir, named
// <Class>_wide_meta.csv, with a <attr>__unit and <attr>__prov column
// beside every attribute column so units and provenance survive the
// round trip.
func ExportWideMetaCSV(m *model.Model, dir string, opts ExportOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	rs := m.Schema()

	for _, class := range rs.Names() {
		ec, ok := rs.Class(class)
		if !ok {
			continue
		}

		header := []string{"entity_id"}
		for _, an := range ec.AttributeNames() {
			header = append(header, an, an+"__unit", an+"__prov")
		}
		header = append(header, ec.RelationNames()...)

		var rows [][]string
		for _, ent := range m.EntitiesOf(class) {
			row := make([]string, len(header))
			row[0] = ent.ID()
			wrote := false

			for i, an := range ec.AttributeNames() {
				av, ok := ent.Attribute(an)
				if !ok || model.IsEmpty(av.Value) {
					continue
				}
				row[1+3*i] = cellString(av.Value)
				row[2+3*i] = av.Unit
				row[3+3*i] = av.ProvenanceRef
				wrote = true
			}

			offset := 1 + 3*len(ec.AttributeNames())
			for i, rn := range ec.RelationNames() {
				targets := nonEmpty(ent.RelationTargets(rn))
				if len(targets) == 0 {
					continue
				}
				row[offset+i] = relationCell(targets)
				wrote = true
			}

			if wrote || !opts.OmitPlaceholders {
				rows = append(rows, row)
			}
		}

		path := filepath.Join(dir, WideMetaFileName(class))
		if err := writeCSVFile(path, header, rows); err != nil {
			return err
		}
	}
	return nil
}

// ImportWideCSV reads per-class <Class>_wide.csv files from dir.
// Relation cells accept a JSON array, a ";"-separated list, a
// ","-separated list, or a single id.
func ImportWideCSV(m *model.Model, dir string, opts ImportOptions) (Summary, error) {
	return importWide(m, dir, opts, false)
}

// ImportWideMetaCSV reads per-class <Class>_wide_meta.csv files from
// dir, restoring attribute units and provenance from the meta columns.
func ImportWideMetaCSV(m *model.Model, dir string, opts ImportOptions) (Summary, error) {
	return importWide(m, dir, opts, true)
}

func importWide(m *model.Model, dir string, opts ImportOptions, meta bool) (Summary, error) {
	var sum Summary
	rs := m.Schema()

	if _, err := os.Stat(dir); err != nil {
		return sum, fmt.Errorf("scan import directory: %w", err)
	}

	for _, class := range rs.Names() {
		name := WideFileName(class)
		if meta {
			name = WideMetaFileName(class)
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		t, err := readCSVFile(path)
		if err != nil {
			return sum, err
		}
		if !t.has("entity_id") {
			return sum, fmt.Errorf("%s missing entity_id column", name)
		}

		ec, _ := rs.Class(class)
		if err := checkWideHeader(&sum, opts, ec, class, name, t.header, meta); err != nil {
			return sum, err
		}

		for _, row := range t.rows {
			eid := strings.TrimSpace(t.get(row, "entity_id"))
			if eid == "" {
				continue
			}

			if _, exists := m.Entity(eid); !exists {
				if _, err := m.AddEntity(class, eid); err != nil {
					return sum, fmt.Errorf("create %s %q: %w", class, eid, err)
				}
				sum.CreatedEntities++
			}

			for _, rn := range ec.RelationNames() {
				if !t.has(rn) {
					continue
				}
				targets := parseTargets(t.get(row, rn))
				if len(targets) == 0 {
					continue
				}
				rd := ec.Relations[rn]
				if opts.CreateMissingRefs {
					if err := createMissingTargets(m, &sum, rd, targets); err != nil {
						return sum, err
					}
				}
				if err := m.SetRelationTargets(eid, rn, targets); err != nil {
					return sum, err
				}
				sum.SetRelations += len(targets)
			}

			for _, an := range ec.AttributeNames() {
				if !t.has(an) {
					continue
				}
				val := t.get(row, an)
				if val == "" {
					continue
				}
				var setOpts model.SetOptions
				if meta {
					setOpts.Unit = strings.TrimSpace(t.get(row, an+"__unit"))
					setOpts.ProvenanceRef = strings.TrimSpace(t.get(row, an+"__prov"))
				}
				if err := m.SetAttribute(eid, an, val, setOpts); err != nil {
					return sum, err
				}
				sum.SetAttributes++
			}
		}
	}
	return sum, nil
}

// checkWideHeader flags columns that match no declared field. Meta
// columns are accepted for declared attributes only.
func checkWideHeader(sum *Summary, opts ImportOptions, ec *schema.EntityClass, class, file string, header []string, meta bool) error {
	for _, col := range header {
		if col == "entity_id" {
			continue
		}
		base := col
		if meta {
			base = strings.TrimSuffix(strings.TrimSuffix(col, "__unit"), "__prov")
		}
		if _, ok := ec.Attributes[base]; ok {
			continue
		}
		if _, ok := ec.Relations[col]; ok {
			continue
		}
		if opts.StrictUnknown {
			return fmt.Errorf("unknown column %q in %s", col, file)
		}
		sum.addUnknown(class, "", col, "unknown column")
	}
	return nil
}
