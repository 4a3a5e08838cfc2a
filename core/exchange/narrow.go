package exchange

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cesdm/modelkit/core/model"
)

var narrowHeader = []string{"entity_id", "attribute", "value", "relation"}

// ExportNarrowCSV writes one narrow CSV per class into dir, named
// <Class>.csv. Each attribute becomes a row of
// entity_id,attribute,value,relation where the relation column carries
// the attribute's ref constraint; each relation target becomes a row
// whose attribute column holds the relation name and whose relation
// column holds the first allowed target class. Entities with no rows
// keep a placeholder row so they survive the round trip. A file is
// written for every class, header included, even when empty.
func ExportNarrowCSV(m *model.Model, dir string, opts ExportOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	rs := m.Schema()

	for _, class := range rs.Names() {
		ec, ok := rs.Class(class)
		if !ok {
			continue
		}

		var rows [][]string
		for _, ent := range m.EntitiesOf(class) {
			wrote := false

			for _, an := range ec.AttributeNames() {
				av, ok := ent.Attribute(an)
				if !ok {
					continue
				}
				rows = append(rows, []string{
					ent.ID(), an, cellString(av.Value), ec.Attributes[an].Constraints.Ref,
				})
				wrote = true
			}

			for _, rn := range ec.RelationNames() {
				rd := ec.Relations[rn]
				for _, tid := range nonEmpty(ent.RelationTargets(rn)) {
					rows = append(rows, []string{ent.ID(), rn, tid, rd.Target()})
					wrote = true
				}
			}

			if !wrote && !opts.OmitPlaceholders {
				rows = append(rows, []string{ent.ID(), PlaceholderAttribute, "", ""})
			}
		}

		path := filepath.Join(dir, class+".csv")
		if err := writeCSVFile(path, narrowHeader, rows); err != nil {
			return err
		}
	}
	return nil
}

// ImportNarrowCSV reads per-class narrow CSV files from dir in two
// passes: first every entity id is created, then attributes and
// relations are populated, so rows may reference entities declared in
// later files. Rows whose attribute starts with "__" are placeholders
// and skipped.
func ImportNarrowCSV(m *model.Model, dir string, opts ImportOptions) (Summary, error) {
	var sum Summary
	rs := m.Schema()

	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return sum, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		if _, statErr := os.Stat(dir); statErr != nil {
			return sum, fmt.Errorf("scan import directory: %w", statErr)
		}
	}
	sort.Strings(files)

	type classFile struct {
		path  string
		class string
		table *csvTable
	}
	var tables []classFile

	for _, file := range files {
		stem := strings.TrimSuffix(filepath.Base(file), ".csv")
		cname, err := rs.Canonical(stem)
		if err != nil {
			if opts.StrictUnknown {
				return sum, fmt.Errorf("unknown class %q (file %s)", stem, filepath.Base(file))
			}
			sum.addUnknown(stem, "", "", "unknown class")
			continue
		}
		t, err := readCSVFile(file)
		if err != nil {
			return sum, err
		}
		tables = append(tables, classFile{path: file, class: cname, table: t})
	}

	// pass 1: create every entity mentioned anywhere
	for _, cf := range tables {
		for _, row := range cf.table.rows {
			eid := strings.TrimSpace(cf.table.get(row, "entity_id"))
			if eid == "" {
				continue
			}
			if _, exists := m.Entity(eid); exists {
				continue
			}
			if _, err := m.AddEntity(cf.class, eid); err != nil {
				return sum, fmt.Errorf("create %s %q: %w", cf.class, eid, err)
			}
			sum.CreatedEntities++
		}
	}

	// pass 2: populate fields
	for _, cf := range tables {
		ec, _ := rs.Class(cf.class)
		for _, row := range cf.table.rows {
			eid := strings.TrimSpace(cf.table.get(row, "entity_id"))
			attr := strings.TrimSpace(cf.table.get(row, "attribute"))
			val := cf.table.get(row, "value")
			relMeta := strings.TrimSpace(cf.table.get(row, "relation"))

			if eid == "" || attr == "" || strings.HasPrefix(attr, "__") {
				continue
			}

			if rd, ok := ec.Relations[attr]; ok {
				target := strings.TrimSpace(val)
				if relMeta != "" && relMeta != rd.Target() {
					target = relMeta
				}
				if target == "" {
					return sum, fmt.Errorf("[%s:%s] missing target id for relation %q in %s",
						cf.class, eid, attr, filepath.Base(cf.path))
				}
				if opts.CreateMissingRefs {
					if err := createMissingTargets(m, &sum, rd, []string{target}); err != nil {
						return sum, err
					}
				}
				if err := m.SetRelation(eid, attr, target); err != nil {
					return sum, err
				}
				sum.SetRelations++
				continue
			}

			ad, ok := ec.Attributes[attr]
			if !ok {
				if opts.StrictUnknown {
					return sum, fmt.Errorf("[%s:%s] unknown attribute %q in %s",
						cf.class, eid, attr, filepath.Base(cf.path))
				}
				sum.addUnknown(cf.class, eid, attr, "unknown attribute")
				continue
			}

			// Attributes with a ref constraint carry an entity id;
			// the id may sit in the value or the relation column.
			if ref := ad.Constraints.Ref; ref != "" {
				target := strings.TrimSpace(val)
				if relMeta != "" && relMeta != ref {
					target = relMeta
				}
				if target == "" {
					return sum, fmt.Errorf("[%s:%s] missing referenced id for %q in %s",
						cf.class, eid, attr, filepath.Base(cf.path))
				}
				if opts.CreateMissingRefs {
					if _, exists := m.Entity(target); !exists {
						if _, err := m.AddEntity(ref, target); err != nil {
							return sum, fmt.Errorf("create missing target %q: %w", target, err)
						}
						sum.CreatedEntities++
					}
				}
				if err := m.SetAttribute(eid, attr, target, model.SetOptions{}); err != nil {
					return sum, err
				}
				sum.SetAttributes++
				continue
			}

			if val == "" {
				continue
			}
			if err := m.SetAttribute(eid, attr, val, model.SetOptions{}); err != nil {
				return sum, err
			}
			sum.SetAttributes++
		}
	}
	return sum, nil
}
