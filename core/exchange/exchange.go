// Package exchange moves whole models across serialization formats:
// nested JSON/YAML documents, narrow/wide/long CSV dialects, all
// sharing one normalized shape per field. Attributes travel as
// {id, value, unit?, provenance_ref?}, relations as
// {id, target_entity_ids: [...]}.
//
// Every import reports a Summary and honors the same strictness rule:
// in strict mode the first unknown class, attribute or relation aborts
// the import with an error; in lenient mode (the default) unknowns are
// collected in the summary and skipped. Write failures (bad values,
// disallowed units) are errors in both modes.
//
// Exports followed by an import into a freshly schema-loaded model
// round-trip: the new store validates equivalently to the source.
// Re-importing into an existing model overwrites fields instead of
// duplicating them.
package exchange

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// UnknownField records a class, attribute or relation an import did
// not recognize in lenient mode.
type UnknownField struct {
	Class    string `json:"class" yaml:"class"`
	EntityID string `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
	Field    string `json:"field,omitempty" yaml:"field,omitempty"`
	Reason   string `json:"reason" yaml:"reason"`
	Line     int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// Summary reports what an import did.
type Summary struct {
	CreatedEntities int            `json:"created_entities" yaml:"created_entities"`
	SetAttributes   int            `json:"set_attributes" yaml:"set_attributes"`
	SetRelations    int            `json:"set_relations" yaml:"set_relations"`
	Unknowns        []UnknownField `json:"unknowns,omitempty" yaml:"unknowns,omitempty"`
	PerClassRows    map[string]int `json:"per_class_rows,omitempty" yaml:"per_class_rows,omitempty"`
}

func (s *Summary) addUnknown(class, id, field, reason string) {
	s.Unknowns = append(s.Unknowns, UnknownField{Class: class, EntityID: id, Field: field, Reason: reason})
}

// ImportOptions control import behavior across all dialects.
type ImportOptions struct {
	// StrictUnknown aborts the import on the first unknown class,
	// attribute or relation instead of collecting it.
	StrictUnknown bool

	// CreateMissingRefs creates empty shell entities for relation
	// targets that do not exist yet, in the first allowed target
	// class.
	CreateMissingRefs bool
}

// ExportOptions control the CSV exporters.
type ExportOptions struct {
	// OmitPlaceholders drops entities with no stored fields instead of
	// keeping them visible through placeholder rows.
	OmitPlaceholders bool
}

// PlaceholderAttribute marks narrow CSV rows that only assert an
// entity's existence. Import skips any attribute with this prefix.
const PlaceholderAttribute = "__exists__"

// cellString renders an attribute value for a CSV cell. Scalars print
// plainly, anything structured is JSON-encoded inline.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

// relationCell renders a target list for a CSV cell: a bare id for a
// single target, a JSON array otherwise.
func relationCell(targets []string) string {
	if len(targets) == 1 {
		return targets[0]
	}
	b, err := json.Marshal(targets)
	if err != nil {
		return strings.Join(targets, ";")
	}
	return string(b)
}

// parseTargets reads a relation cell back: JSON array first, then
// semicolon-separated, then comma-separated, then a single id.
func parseTargets(cell string) []string {
	txt := strings.TrimSpace(cell)
	if txt == "" {
		return nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(txt), &parsed); err == nil {
		switch p := parsed.(type) {
		case []any:
			out := make([]string, 0, len(p))
			for _, v := range p {
				s := strings.TrimSpace(fmt.Sprintf("%v", v))
				if s != "" && v != nil {
					out = append(out, s)
				}
			}
			return out
		case string:
			if s := strings.TrimSpace(p); s != "" {
				return []string{s}
			}
			return nil
		}
		// numbers and booleans fall through to the plain-text rules
	}

	sep := ""
	switch {
	case strings.Contains(txt, ";"):
		sep = ";"
	case strings.Contains(txt, ","):
		sep = ","
	default:
		return []string{txt}
	}

	var out []string
	for _, part := range strings.Split(txt, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ensureParentDir creates the directory a file will be written into.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
