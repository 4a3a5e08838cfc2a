package exchange

import (
	"sort"

	"github.com/cesdm/modelkit/core/model"
)

// ExportFunc writes a model to a file or directory.
type ExportFunc func(m *model.Model, path string, opts ExportOptions) error

// ImportFunc reads a file or directory into a model.
type ImportFunc func(m *model.Model, path string, opts ImportOptions) (Summary, error)

// Dialect bundles one wire format's entry points behind a common shape,
// for callers that dispatch on a format name.
type Dialect struct {
	Name        string
	Description string

	// Dir is true when the dialect reads and writes a directory of
	// per-class files instead of a single file.
	Dir bool

	Export ExportFunc
	Import ImportFunc
}

var dialects = map[string]Dialect{
	"json": {
		Name:        "json",
		Description: "Nested JSON document",
		Export: func(m *model.Model, path string, _ ExportOptions) error {
			return ExportJSON(m, path)
		},
		Import: ImportJSON,
	},
	"yaml": {
		Name:        "yaml",
		Description: "Nested YAML document",
		Export: func(m *model.Model, path string, _ ExportOptions) error {
			return ExportYAML(m, path)
		},
		Import: ImportYAML,
	},
	"narrow": {
		Name:        "narrow",
		Description: "Narrow CSV, one file per class, one row per field",
		Dir:         true,
		Export:      ExportNarrowCSV,
		Import:      ImportNarrowCSV,
	},
	"wide": {
		Name:        "wide",
		Description: "Wide CSV, one file per class, one row per entity",
		Dir:         true,
		Export:      ExportWideCSV,
		Import:      ImportWideCSV,
	},
	"wide-meta": {
		Name:        "wide-meta",
		Description: "Wide CSV with unit and provenance columns",
		Dir:         true,
		Export:      ExportWideMetaCSV,
		Import:      ImportWideMetaCSV,
	},
	"long": {
		Name:        "long",
		Description: "Long CSV, one file, one row per field across all classes",
		Export:      ExportLongCSV,
		Import:      ImportLongCSV,
	},
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

// DialectNames returns all registered dialect names, sorted.
func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
