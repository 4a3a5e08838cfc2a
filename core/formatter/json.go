package formatter

import (
	"encoding/json"
	"io"

	"github.com/cesdm/modelkit/core/exchange"
	"github.com/cesdm/modelkit/core/schema"
	"github.com/cesdm/modelkit/core/validation"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output"
}

// FormatReport encodes the validation result as JSON.
func (f *JSONFormatter) FormatReport(w io.Writer, res validation.Result, opts FormatOptions) error {
	return f.encode(w, res, opts)
}

// FormatSummary encodes the import summary as JSON.
func (f *JSONFormatter) FormatSummary(w io.Writer, sum exchange.Summary, opts FormatOptions) error {
	return f.encode(w, sum, opts)
}

// FormatClasses encodes the class overview as JSON.
func (f *JSONFormatter) FormatClasses(w io.Writer, classes []schema.ClassSummary, opts FormatOptions) error {
	return f.encode(w, classes, opts)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]string{"error": err.Error()}, FormatOptions{})
}

func (f *JSONFormatter) encode(w io.Writer, v any, opts FormatOptions) error {
	enc := json.NewEncoder(w)
	if !opts.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func init() {
	Register(NewJSONFormatter())
}
