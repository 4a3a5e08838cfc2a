package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/cesdm/modelkit/core/exchange"
	"github.com/cesdm/modelkit/core/schema"
	"github.com/cesdm/modelkit/core/validation"
)

// Helper to build a validation result with findings
func createTestResult() validation.Result {
	return validation.Result{
		Valid: false,
		Diagnostics: []validation.Diagnostic{
			{Class: "Generator", EntityID: "g1", Field: "capacity", Message: "required attribute 'capacity' is missing"},
			{Class: "Grid", EntityID: "grid1", Field: "members", Message: "relation 'members' targets unknown entity 'ghost'"},
		},
	}
}

// Helper to build an import summary
func createTestSummary() exchange.Summary {
	return exchange.Summary{
		CreatedEntities: 3,
		SetAttributes:   5,
		SetRelations:    2,
		Unknowns: []exchange.UnknownField{
			{Class: "Node", EntityID: "n1", Field: "colour", Reason: "unknown attribute", Line: 4},
			{Class: "Pylon", Reason: "unknown class"},
		},
		PerClassRows: map[string]int{"Node": 2, "Generator": 1},
	}
}

// Helper to build a class overview
func createTestClasses() []schema.ClassSummary {
	return []schema.ClassSummary{
		{Name: "Asset", Abstract: true, Attributes: []string{"name"}},
		{Name: "Generator", Parents: []string{"Asset"}, Attributes: []string{"capacity", "name"}, Relations: []string{"node"}},
		{Name: "Node", Parents: []string{"Asset"}, Attributes: []string{"name", "voltage"}},
	}
}

// ===========================================
// Registry Tests
// ===========================================

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if r.formatters == nil {
		t.Fatal("formatters map should be initialized")
	}
	if r.defaultFmt != "table" {
		t.Errorf("default format should be 'table', got %q", r.defaultFmt)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	f := NewTableFormatter()
	err := r.Register(f)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Registering the same name twice must fail
	err = r.Register(f)
	if err == nil {
		t.Fatal("expected error when registering duplicate formatter")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("error message should mention 'already registered', got: %v", err)
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	f := NewTableFormatter()
	_ = r.Register(f)

	got, ok := r.Get("table")
	if !ok {
		t.Fatal("expected to find 'table' formatter")
	}
	if got.Name() != "table" {
		t.Errorf("expected name 'table', got %q", got.Name())
	}

	_, ok = r.Get("nonexistent")
	if ok {
		t.Fatal("expected not to find 'nonexistent' formatter")
	}
}

func TestRegistry_Default(t *testing.T) {
	r := NewRegistry()

	d := r.Default()
	if d != nil {
		t.Fatal("expected nil default for empty registry")
	}

	tableF := NewTableFormatter()
	_ = r.Register(tableF)

	d = r.Default()
	if d == nil {
		t.Fatal("expected non-nil default")
	}
	if d.Name() != "table" {
		t.Errorf("expected default 'table', got %q", d.Name())
	}

	jsonF := NewJSONFormatter()
	_ = r.Register(jsonF)
	_ = r.SetDefault("json")

	d = r.Default()
	if d.Name() != "json" {
		t.Errorf("expected default 'json', got %q", d.Name())
	}
}

func TestRegistry_Default_Fallback(t *testing.T) {
	r := NewRegistry()

	// Default is "table" but only json is registered
	jsonF := NewJSONFormatter()
	_ = r.Register(jsonF)

	d := r.Default()
	if d == nil {
		t.Fatal("expected fallback default formatter")
	}
	if d.Name() != "json" {
		t.Errorf("expected fallback to 'json', got %q", d.Name())
	}
}

func TestRegistry_SetDefault(t *testing.T) {
	r := NewRegistry()
	f := NewTableFormatter()
	_ = r.Register(f)

	err := r.SetDefault("table")
	if err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}

	err = r.SetDefault("nonexistent")
	if err == nil {
		t.Fatal("expected error when setting nonexistent default")
	}
	if !strings.Contains(err.Error(), "not registered") {
		t.Errorf("error message should mention 'not registered', got: %v", err)
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()

	names := r.List()
	if len(names) != 0 {
		t.Fatalf("expected empty list, got %v", names)
	}

	_ = r.Register(NewYAMLFormatter())
	_ = r.Register(NewTableFormatter())
	_ = r.Register(NewJSONFormatter())

	names = r.List()
	if len(names) != 3 {
		t.Fatalf("expected 3 formatters, got %d", len(names))
	}

	// List is sorted regardless of registration order
	want := []string{"json", "table", "yaml"}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("names[%d] = %q, want %q", i, names[i], n)
		}
	}
}

// ===========================================
// Global Functions Tests
// ===========================================

func TestGlobalFunctions(t *testing.T) {
	// Save and restore the default registry
	originalRegistry := DefaultRegistry
	defer func() { DefaultRegistry = originalRegistry }()

	DefaultRegistry = NewRegistry()

	f := NewTableFormatter()
	err := Register(f)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := Get("table")
	if !ok {
		t.Fatal("expected to find 'table' formatter")
	}
	if got.Name() != "table" {
		t.Errorf("expected 'table', got %q", got.Name())
	}

	d := Default()
	if d == nil {
		t.Fatal("expected non-nil default")
	}

	names := List()
	if len(names) != 1 || names[0] != "table" {
		t.Errorf("expected ['table'], got %v", names)
	}
}

func TestBuiltinFormattersRegistered(t *testing.T) {
	// init() wires all three into the default registry
	for _, name := range []string{"table", "json", "yaml"} {
		if _, ok := Get(name); !ok {
			t.Errorf("expected %q formatter in default registry", name)
		}
	}
}

// ===========================================
// TableFormatter Tests
// ===========================================

func TestTableFormatter_Name(t *testing.T) {
	f := NewTableFormatter()
	if f.Name() != "table" {
		t.Errorf("expected 'table', got %q", f.Name())
	}
}

func TestTableFormatter_Description(t *testing.T) {
	f := NewTableFormatter()
	if f.Description() != "Aligned text table output" {
		t.Errorf("unexpected description: %q", f.Description())
	}
}

func TestTableFormatter_FormatReport_Valid(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	err := f.FormatReport(&buf, validation.Result{Valid: true}, FormatOptions{})
	if err != nil {
		t.Fatalf("FormatReport failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Model is valid") {
		t.Errorf("expected validity confirmation, got: %q", output)
	}
	if strings.Contains(output, "CLASS") {
		t.Errorf("valid result should not print a findings table, got: %q", output)
	}
}

func TestTableFormatter_FormatReport_WithFindings(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	err := f.FormatReport(&buf, createTestResult(), FormatOptions{})
	if err != nil {
		t.Fatalf("FormatReport failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"CLASS", "ENTITY", "MESSAGE", "Generator", "g1", "capacity", "2 finding(s)"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %q", want, output)
		}
	}
}

func TestTableFormatter_FormatReport_NoHeader(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	err := f.FormatReport(&buf, createTestResult(), FormatOptions{NoHeader: true})
	if err != nil {
		t.Fatalf("FormatReport failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "CLASS") {
		t.Errorf("expected no header with NoHeader option, got: %q", output)
	}
	if !strings.Contains(output, "Generator") {
		t.Errorf("expected finding rows, got: %q", output)
	}
}

func TestTableFormatter_FormatReport_MaxWidth(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	err := f.FormatReport(&buf, createTestResult(), FormatOptions{MaxWidth: 20})
	if err != nil {
		t.Fatalf("FormatReport failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "...") {
		t.Errorf("expected truncated messages, got: %q", output)
	}
	if strings.Contains(output, "is missing") {
		t.Errorf("expected long message to be cut, got: %q", output)
	}
}

func TestTableFormatter_FormatSummary(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	err := f.FormatSummary(&buf, createTestSummary(), FormatOptions{})
	if err != nil {
		t.Fatalf("FormatSummary failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Entities created:", "3",
		"Attributes set:", "5",
		"Relations set:", "2",
		"Rows for Generator:", "Rows for Node:",
		"Skipped 2 unknown field(s)", "colour", "unknown attribute", "unknown class",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %q", want, output)
		}
	}

	// Per-class rows come out sorted by class name
	if strings.Index(output, "Rows for Generator:") > strings.Index(output, "Rows for Node:") {
		t.Errorf("expected per-class rows sorted by name, got: %q", output)
	}
}

func TestTableFormatter_FormatSummary_NoUnknowns(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	sum := exchange.Summary{CreatedEntities: 1, SetAttributes: 2}
	err := f.FormatSummary(&buf, sum, FormatOptions{})
	if err != nil {
		t.Fatalf("FormatSummary failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "Skipped") {
		t.Errorf("expected no unknowns section, got: %q", output)
	}
}

func TestTableFormatter_FormatClasses(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	err := f.FormatClasses(&buf, createTestClasses(), FormatOptions{})
	if err != nil {
		t.Fatalf("FormatClasses failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"CLASS", "PARENTS", "ABSTRACT", "Asset", "yes", "Generator", "capacity, name", "node"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %q", want, output)
		}
	}
}

func TestTableFormatter_FormatClasses_Empty(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	err := f.FormatClasses(&buf, nil, FormatOptions{})
	if err != nil {
		t.Fatalf("FormatClasses failed: %v", err)
	}

	if !strings.Contains(buf.String(), "No classes defined") {
		t.Errorf("expected empty-schema message, got: %q", buf.String())
	}
}

func TestTableFormatter_FormatError(t *testing.T) {
	f := NewTableFormatter()
	var buf bytes.Buffer

	testErr := errors.New("test error message")
	err := f.FormatError(&buf, testErr)
	if err != nil {
		t.Fatalf("FormatError failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Error:") {
		t.Errorf("expected 'Error:' prefix, got: %q", output)
	}
	if !strings.Contains(output, "test error message") {
		t.Errorf("expected error message, got: %q", output)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		maxWidth int
		expected string
	}{
		{"no limit", "hello world", 0, "hello world"},
		{"under limit", "hello", 10, "hello"},
		{"exactly at limit", "123456789", 9, "123456789"},
		{"over limit", "1234567890", 9, "123456..."},
		{"tiny limit kept whole", "hello", 3, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.maxWidth)
			if got != tt.expected {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxWidth, got, tt.expected)
			}
		})
	}
}

// ===========================================
// JSONFormatter Tests
// ===========================================

func TestJSONFormatter_Name(t *testing.T) {
	f := NewJSONFormatter()
	if f.Name() != "json" {
		t.Errorf("expected 'json', got %q", f.Name())
	}
}

func TestJSONFormatter_FormatReport(t *testing.T) {
	f := NewJSONFormatter()
	var buf bytes.Buffer

	err := f.FormatReport(&buf, createTestResult(), FormatOptions{})
	if err != nil {
		t.Fatalf("FormatReport failed: %v", err)
	}

	var result validation.Result
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if result.Valid {
		t.Error("expected valid=false")
	}
	if len(result.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(result.Diagnostics))
	}
	if result.Diagnostics[0].Class != "Generator" || result.Diagnostics[0].EntityID != "g1" {
		t.Errorf("unexpected first diagnostic: %+v", result.Diagnostics[0])
	}
}

func TestJSONFormatter_FormatReport_Compact(t *testing.T) {
	f := NewJSONFormatter()
	var buf bytes.Buffer

	res := validation.Result{Valid: true}
	err := f.FormatReport(&buf, res, FormatOptions{Compact: true})
	if err != nil {
		t.Fatalf("FormatReport failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "  ") {
		t.Errorf("compact output should not have indentation, got: %q", output)
	}
}

func TestJSONFormatter_FormatSummary(t *testing.T) {
	f := NewJSONFormatter()
	var buf bytes.Buffer

	err := f.FormatSummary(&buf, createTestSummary(), FormatOptions{})
	if err != nil {
		t.Fatalf("FormatSummary failed: %v", err)
	}

	var sum exchange.Summary
	if err := json.Unmarshal(buf.Bytes(), &sum); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if sum.CreatedEntities != 3 || sum.SetAttributes != 5 || sum.SetRelations != 2 {
		t.Errorf("unexpected counters: %+v", sum)
	}
	if len(sum.Unknowns) != 2 {
		t.Errorf("expected 2 unknowns, got %d", len(sum.Unknowns))
	}
	if sum.PerClassRows["Node"] != 2 {
		t.Errorf("expected 2 Node rows, got %d", sum.PerClassRows["Node"])
	}
}

func TestJSONFormatter_FormatClasses(t *testing.T) {
	f := NewJSONFormatter()
	var buf bytes.Buffer

	err := f.FormatClasses(&buf, createTestClasses(), FormatOptions{})
	if err != nil {
		t.Fatalf("FormatClasses failed: %v", err)
	}

	var classes []schema.ClassSummary
	if err := json.Unmarshal(buf.Bytes(), &classes); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if len(classes) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(classes))
	}
	if classes[0].Name != "Asset" || !classes[0].Abstract {
		t.Errorf("unexpected first class: %+v", classes[0])
	}
}

func TestJSONFormatter_FormatError(t *testing.T) {
	f := NewJSONFormatter()
	var buf bytes.Buffer

	testErr := errors.New("test error message")
	err := f.FormatError(&buf, testErr)
	if err != nil {
		t.Fatalf("FormatError failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if result["error"] != "test error message" {
		t.Errorf("expected error 'test error message', got %v", result["error"])
	}
}

// ===========================================
// YAMLFormatter Tests
// ===========================================

func TestYAMLFormatter_Name(t *testing.T) {
	f := NewYAMLFormatter()
	if f.Name() != "yaml" {
		t.Errorf("expected 'yaml', got %q", f.Name())
	}
}

func TestYAMLFormatter_FormatReport(t *testing.T) {
	f := NewYAMLFormatter()
	var buf bytes.Buffer

	err := f.FormatReport(&buf, createTestResult(), FormatOptions{})
	if err != nil {
		t.Fatalf("FormatReport failed: %v", err)
	}

	var result validation.Result
	if err := yaml.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse YAML output: %v", err)
	}

	if result.Valid {
		t.Error("expected valid=false")
	}
	if len(result.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(result.Diagnostics))
	}
	if result.Diagnostics[1].EntityID != "grid1" {
		t.Errorf("unexpected second diagnostic: %+v", result.Diagnostics[1])
	}
}

func TestYAMLFormatter_FormatSummary(t *testing.T) {
	f := NewYAMLFormatter()
	var buf bytes.Buffer

	err := f.FormatSummary(&buf, createTestSummary(), FormatOptions{})
	if err != nil {
		t.Fatalf("FormatSummary failed: %v", err)
	}

	var sum exchange.Summary
	if err := yaml.Unmarshal(buf.Bytes(), &sum); err != nil {
		t.Fatalf("failed to parse YAML output: %v", err)
	}

	if sum.CreatedEntities != 3 {
		t.Errorf("expected 3 created entities, got %d", sum.CreatedEntities)
	}
	if sum.Unknowns[0].Line != 4 {
		t.Errorf("expected line 4 on first unknown, got %d", sum.Unknowns[0].Line)
	}
}

func TestYAMLFormatter_FormatClasses(t *testing.T) {
	f := NewYAMLFormatter()
	var buf bytes.Buffer

	err := f.FormatClasses(&buf, createTestClasses(), FormatOptions{})
	if err != nil {
		t.Fatalf("FormatClasses failed: %v", err)
	}

	var classes []schema.ClassSummary
	if err := yaml.Unmarshal(buf.Bytes(), &classes); err != nil {
		t.Fatalf("failed to parse YAML output: %v", err)
	}

	if len(classes) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(classes))
	}
	if classes[1].Name != "Generator" || len(classes[1].Relations) != 1 {
		t.Errorf("unexpected second class: %+v", classes[1])
	}
}

func TestYAMLFormatter_FormatError(t *testing.T) {
	f := NewYAMLFormatter()
	var buf bytes.Buffer

	testErr := errors.New("test error message")
	err := f.FormatError(&buf, testErr)
	if err != nil {
		t.Fatalf("FormatError failed: %v", err)
	}

	var result map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse YAML output: %v", err)
	}

	if result["error"] != "test error message" {
		t.Errorf("expected error 'test error message', got %v", result["error"])
	}
}

// ===========================================
// Interface Compliance Tests
// ===========================================

func TestTableFormatter_ImplementsInterface(t *testing.T) {
	var _ Formatter = (*TableFormatter)(nil)
}

func TestJSONFormatter_ImplementsInterface(t *testing.T) {
	var _ Formatter = (*JSONFormatter)(nil)
}

func TestYAMLFormatter_ImplementsInterface(t *testing.T) {
	var _ Formatter = (*YAMLFormatter)(nil)
}

// ===========================================
// Concurrency Tests
// ===========================================

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewTableFormatter())

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_, _ = r.Get("table")
				_ = r.List()
				_ = r.Default()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
