package exchange

import (
	"fmt"
	"strings"

	"github.com/cesdm/modelkit/core/model"
)

var longHeader = []string{
	"entity_class", "entity_id",
	"attribute_id", "attribute_value", "attribute_unit", "attribute_provenance",
	"relation_type", "relation_id",
}

// longCoreColumns must all be present for an import to proceed. The
// unit and provenance columns are optional.
var longCoreColumns = []string{
	"entity_class", "entity_id",
	"attribute_id", "attribute_value",
	"relation_type", "relation_id",
}

// ExportLongCSV writes the whole model into a single long-form CSV at
// path: one row per stored attribute and one row per relation target.
// Entities with no stored fields are kept as placeholder rows unless
// OmitPlaceholders is set.
func ExportLongCSV(m *model.Model, path string, opts ExportOptions) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	rs := m.Schema()

	var rows [][]string
	for _, class := range rs.Names() {
		ec, ok := rs.Class(class)
		if !ok {
			continue
		}
		for _, ent := range m.EntitiesOf(class) {
			wrote := false

			for _, an := range ec.AttributeNames() {
				av, ok := ent.Attribute(an)
				if !ok {
					continue
				}
				rows = append(rows, []string{
					class, ent.ID(),
					an, cellString(av.Value), av.Unit, av.ProvenanceRef,
					"", "",
				})
				wrote = true
			}

			for _, rn := range ec.RelationNames() {
				for _, tid := range nonEmpty(ent.RelationTargets(rn)) {
					rows = append(rows, []string{
						class, ent.ID(),
						"", "", "", "",
						rn, tid,
					})
					wrote = true
				}
			}

			if !wrote && !opts.OmitPlaceholders {
				rows = append(rows, []string{
					class, ent.ID(),
					PlaceholderAttribute, "", "", "",
					"", "",
				})
			}
		}
	}

	return writeCSVFile(path, longHeader, rows)
}

// ImportLongCSV reads a long-form CSV written by ExportLongCSV. Rows
// carrying an unknown class, attribute or relation abort the import in
// strict mode and are collected with their line number otherwise.
// Multi-target relation cells may carry a ","-separated id list.
func ImportLongCSV(m *model.Model, path string, opts ImportOptions) (Summary, error) {
	sum := Summary{PerClassRows: map[string]int{}}
	rs := m.Schema()

	t, err := readCSVFile(path)
	if err != nil {
		return sum, err
	}
	for _, col := range longCoreColumns {
		if !t.has(col) {
			return sum, fmt.Errorf("%s missing column %q, need %s",
				path, col, strings.Join(longCoreColumns, ", "))
		}
	}

	for i, row := range t.rows {
		line := i + 2 // header is line 1

		rawClass := strings.TrimSpace(t.get(row, "entity_class"))
		eid := strings.TrimSpace(t.get(row, "entity_id"))
		if rawClass == "" || eid == "" {
			continue
		}

		class, err := rs.Canonical(rawClass)
		if err != nil {
			if opts.StrictUnknown {
				return sum, fmt.Errorf("line %d: unknown class %q", line, rawClass)
			}
			sum.Unknowns = append(sum.Unknowns, UnknownField{
				Class: rawClass, EntityID: eid, Field: "entity_class",
				Reason: "unknown class", Line: line,
			})
			continue
		}
		ec, _ := rs.Class(class)

		if _, exists := m.Entity(eid); !exists {
			if _, err := m.AddEntity(class, eid); err != nil {
				return sum, fmt.Errorf("line %d: create %s %q: %w", line, class, eid, err)
			}
			sum.CreatedEntities++
		}
		sum.PerClassRows[class]++

		if an := strings.TrimSpace(t.get(row, "attribute_id")); an != "" && !strings.HasPrefix(an, "__") {
			if _, ok := ec.Attributes[an]; !ok {
				if opts.StrictUnknown {
					return sum, fmt.Errorf("line %d: [%s:%s] unknown attribute %q", line, class, eid, an)
				}
				sum.Unknowns = append(sum.Unknowns, UnknownField{
					Class: class, EntityID: eid, Field: an,
					Reason: "unknown attribute", Line: line,
				})
			} else if val := t.get(row, "attribute_value"); val != "" {
				setOpts := model.SetOptions{
					Unit:          strings.TrimSpace(t.get(row, "attribute_unit")),
					ProvenanceRef: strings.TrimSpace(t.get(row, "attribute_provenance")),
				}
				if err := m.SetAttribute(eid, an, val, setOpts); err != nil {
					return sum, fmt.Errorf("line %d: %w", line, err)
				}
				sum.SetAttributes++
			}
		}

		if rn := strings.TrimSpace(t.get(row, "relation_type")); rn != "" {
			rd, ok := ec.Relations[rn]
			if !ok {
				if opts.StrictUnknown {
					return sum, fmt.Errorf("line %d: [%s:%s] unknown relation %q", line, class, eid, rn)
				}
				sum.Unknowns = append(sum.Unknowns, UnknownField{
					Class: class, EntityID: eid, Field: rn,
					Reason: "unknown relation", Line: line,
				})
				continue
			}
			var targets []string
			for _, tid := range strings.Split(t.get(row, "relation_id"), ",") {
				if tid = strings.TrimSpace(tid); tid != "" {
					targets = append(targets, tid)
				}
			}
			if len(targets) == 0 {
				continue
			}
			if opts.CreateMissingRefs {
				if err := createMissingTargets(m, &sum, rd, targets); err != nil {
					return sum, fmt.Errorf("line %d: %w", line, err)
				}
			}
			for _, tid := range targets {
				if err := m.SetRelation(eid, rn, tid); err != nil {
					return sum, fmt.Errorf("line %d: %w", line, err)
				}
				sum.SetRelations++
			}
		}
	}
	return sum, nil
}
