package formatter

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/cesdm/modelkit/core/exchange"
	"github.com/cesdm/modelkit/core/schema"
	"github.com/cesdm/modelkit/core/validation"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output"
}

// FormatReport encodes the validation result as YAML.
func (f *YAMLFormatter) FormatReport(w io.Writer, res validation.Result, _ FormatOptions) error {
	return f.encode(w, res)
}

// FormatSummary encodes the import summary as YAML.
func (f *YAMLFormatter) FormatSummary(w io.Writer, sum exchange.Summary, _ FormatOptions) error {
	return f.encode(w, sum)
}

// FormatClasses encodes the class overview as YAML.
func (f *YAMLFormatter) FormatClasses(w io.Writer, classes []schema.ClassSummary, _ FormatOptions) error {
	return f.encode(w, classes)
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]string{"error": err.Error()})
}

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func init() {
	Register(NewYAMLFormatter())
}
