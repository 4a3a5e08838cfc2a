package exchange

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cesdm/modelkit/core/model"
	"github.com/cesdm/modelkit/core/schema"
)

// attributeDoc is the normalized attribute shape of the nested export.
type attributeDoc struct {
	ID            string `json:"id" yaml:"id"`
	Value         any    `json:"value" yaml:"value"`
	Unit          string `json:"unit,omitempty" yaml:"unit,omitempty"`
	ProvenanceRef string `json:"provenance_ref,omitempty" yaml:"provenance_ref,omitempty"`
}

// relationDoc is the normalized relation shape of the nested export.
type relationDoc struct {
	ID              string   `json:"id" yaml:"id"`
	TargetEntityIDs []string `json:"target_entity_ids" yaml:"target_entity_ids"`
}

type entityDoc struct {
	Attributes []attributeDoc `json:"attributes" yaml:"attributes"`
	Relations  []relationDoc  `json:"relations" yaml:"relations"`
}

// ExportJSON writes the model as one nested JSON document grouped by
// class:
//
//	{
//	  "ClassName": {
//	    "entity_id": {
//	      "attributes": [ {"id": ..., "value": ..., "unit": ..., "provenance_ref": ...}, ... ],
//	      "relations":  [ {"id": ..., "target_entity_ids": [...]}, ... ]
//	    }
//	  }
//	}
//
// Entities with no stored fields and classes with no such entities are
// skipped. Parent directories are created as needed.
func ExportJSON(m *model.Model, path string) error {
	if err := ensureParentDir(path); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	b, err := json.MarshalIndent(nestedDocument(m), "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// ExportYAML writes the same nested structure as ExportJSON in YAML.
func ExportYAML(m *model.Model, path string) error {
	if err := ensureParentDir(path); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	b, err := yaml.Marshal(nestedDocument(m))
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// ImportJSON loads a nested JSON document (as produced by ExportJSON)
// into the model. Entities are created on first sight; fields of
// existing entities are overwritten.
func ImportJSON(m *model.Model, path string, opts ImportOptions) (Summary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read import file: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(b, &payload); err != nil {
		return Summary{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return applyNested(m, payload, opts)
}

// ImportYAML loads a nested YAML document into the model. Both the
// list-of-objects encoding the exporter writes and the legacy
// name-keyed map encoding are accepted for attributes and relations.
func ImportYAML(m *model.Model, path string, opts ImportOptions) (Summary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read import file: %w", err)
	}
	var payload map[string]any
	if err := yaml.Unmarshal(b, &payload); err != nil {
		return Summary{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return applyNested(m, payload, opts)
}

// nestedDocument assembles class → entity id → {attributes, relations}
// with only the stored, non-empty fields of each entity.
func nestedDocument(m *model.Model) map[string]map[string]entityDoc {
	rs := m.Schema()
	out := make(map[string]map[string]entityDoc)

	for _, class := range rs.Names() {
		ec, ok := rs.Class(class)
		if !ok {
			continue
		}

		blob := make(map[string]entityDoc)
		for _, ent := range m.EntitiesOf(class) {
			doc := entityDoc{Attributes: []attributeDoc{}, Relations: []relationDoc{}}

			for _, an := range ec.AttributeNames() {
				av, ok := ent.Attribute(an)
				if !ok || model.IsEmpty(av.Value) {
					continue
				}
				doc.Attributes = append(doc.Attributes, attributeDoc{
					ID:            an,
					Value:         av.Value,
					Unit:          av.Unit,
					ProvenanceRef: av.ProvenanceRef,
				})
			}

			for _, rn := range ec.RelationNames() {
				targets := nonEmpty(ent.RelationTargets(rn))
				if len(targets) == 0 {
					continue
				}
				doc.Relations = append(doc.Relations, relationDoc{ID: rn, TargetEntityIDs: targets})
			}

			if len(doc.Attributes) > 0 || len(doc.Relations) > 0 {
				blob[ent.ID()] = doc
			}
		}

		if len(blob) > 0 {
			out[class] = blob
		}
	}
	return out
}

// applyNested replays a decoded nested document through the write
// engine. Classes and entities are visited in sorted order so repeated
// imports behave identically.
func applyNested(m *model.Model, payload map[string]any, opts ImportOptions) (Summary, error) {
	var sum Summary
	rs := m.Schema()

	for _, rawClass := range sortedKeys(payload) {
		cname, err := rs.Canonical(rawClass)
		if err != nil {
			if opts.StrictUnknown {
				return sum, fmt.Errorf("unknown class %q", rawClass)
			}
			sum.addUnknown(rawClass, "", "", "unknown class")
			continue
		}
		ec, _ := rs.Class(cname)

		items, ok := payload[rawClass].(map[string]any)
		if !ok {
			continue
		}
		for _, eid := range sortedKeys(items) {
			block, _ := items[eid].(map[string]any)
			if block == nil {
				continue
			}

			if _, exists := m.Entity(eid); !exists {
				if _, err := m.AddEntity(cname, eid); err != nil {
					return sum, fmt.Errorf("create %s %q: %w", cname, eid, err)
				}
				sum.CreatedEntities++
			}

			if err := applyAttributes(m, &sum, opts, ec, cname, eid, block["attributes"]); err != nil {
				return sum, err
			}
			if err := applyRelations(m, &sum, opts, ec, cname, eid, block["relations"]); err != nil {
				return sum, err
			}
		}
	}
	return sum, nil
}

func applyAttributes(m *model.Model, sum *Summary, opts ImportOptions, ec *schema.EntityClass, cname, eid string, raw any) error {
	for _, item := range attributeItems(raw) {
		if _, known := ec.Attributes[item.name]; !known {
			if opts.StrictUnknown {
				return fmt.Errorf("[%s:%s] unknown attribute %q", cname, eid, item.name)
			}
			sum.addUnknown(cname, eid, item.name, "unknown attribute")
			continue
		}
		if model.IsEmpty(item.value) {
			continue
		}
		if err := m.SetAttribute(eid, item.name, item.value, model.SetOptions{}); err != nil {
			return err
		}
		sum.SetAttributes++
	}
	return nil
}

func applyRelations(m *model.Model, sum *Summary, opts ImportOptions, ec *schema.EntityClass, cname, eid string, raw any) error {
	for _, item := range relationItems(raw) {
		rd, known := ec.Relations[item.name]
		if !known {
			if opts.StrictUnknown {
				return fmt.Errorf("[%s:%s] unknown relation %q", cname, eid, item.name)
			}
			sum.addUnknown(cname, eid, item.name, "unknown relation")
			continue
		}
		if len(item.targets) == 0 {
			continue
		}
		if opts.CreateMissingRefs {
			if err := createMissingTargets(m, sum, rd, item.targets); err != nil {
				return err
			}
		}
		if err := m.SetRelationTargets(eid, item.name, item.targets); err != nil {
			return err
		}
		sum.SetRelations += len(item.targets)
	}
	return nil
}

// createMissingTargets creates shell entities for target ids that do
// not exist anywhere yet, in the relation's first allowed class.
// Unconstrained relations are left alone since no class can be
// inferred for the shell.
func createMissingTargets(m *model.Model, sum *Summary, rd schema.RelationDef, targets []string) error {
	if len(rd.Targets) == 0 {
		return nil
	}
	for _, tid := range targets {
		if _, exists := m.Entity(tid); exists {
			continue
		}
		if _, err := m.AddEntity(rd.Targets[0], tid); err != nil {
			return fmt.Errorf("create missing target %q: %w", tid, err)
		}
		sum.CreatedEntities++
	}
	return nil
}

type fieldItem struct {
	name  string
	value any
}

// attributeItems accepts both encodings of an attributes block: the
// legacy name-keyed map and the list of {id, ...} objects the exporter
// writes.
func attributeItems(raw any) []fieldItem {
	switch block := raw.(type) {
	case map[string]any:
		items := make([]fieldItem, 0, len(block))
		for _, name := range sortedKeys(block) {
			items = append(items, fieldItem{name: name, value: block[name]})
		}
		return items
	case []any:
		var items []fieldItem
		for _, rec := range block {
			obj, ok := rec.(map[string]any)
			if !ok {
				continue
			}
			name := stringAt(obj, "id", "name")
			if name == "" {
				continue
			}
			spec := make(map[string]any, len(obj))
			for k, v := range obj {
				if k != "id" {
					spec[k] = v
				}
			}
			if len(spec) == 0 {
				continue
			}
			items = append(items, fieldItem{name: name, value: spec})
		}
		return items
	}
	return nil
}

type relationItem struct {
	name    string
	targets []string
}

// relationItems accepts both encodings of a relations block plus the
// historical key fallbacks for the target list.
func relationItems(raw any) []relationItem {
	switch block := raw.(type) {
	case map[string]any:
		items := make([]relationItem, 0, len(block))
		for _, name := range sortedKeys(block) {
			items = append(items, relationItem{name: name, targets: targetList(block[name])})
		}
		return items
	case []any:
		var items []relationItem
		for _, rec := range block {
			obj, ok := rec.(map[string]any)
			if !ok {
				continue
			}
			name := stringAt(obj, "id", "name")
			if name == "" {
				continue
			}
			var targets []string
			for _, key := range []string{"target_entity_ids", "targets", "value", "target_entity_id"} {
				if v, ok := obj[key]; ok {
					if ts := targetList(v); len(ts) > 0 {
						targets = ts
						break
					}
				}
			}
			items = append(items, relationItem{name: name, targets: targets})
		}
		return items
	}
	return nil
}

// targetList normalizes a single id or a list of ids, dropping empty
// entries.
func targetList(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return nonEmpty(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if t == nil {
				continue
			}
			if s := fmt.Sprintf("%v", t); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

func stringAt(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func nonEmpty(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
