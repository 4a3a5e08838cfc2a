package schema

import (
	"testing"
)

func TestParseCardinality(t *testing.T) {
	unbounded := func() *int { return nil }
	bound := func(n int) *int { return &n }

	tests := []struct {
		in   string
		min  int
		max  *int
		str  string
	}{
		{"0", 0, bound(0), "0"},
		{"1", 1, bound(1), "1"},
		{"2", 2, bound(2), "2"},
		{"0..1", 0, bound(1), "0..1"},
		{"1..*", 1, unbounded(), "1..*"},
		{"2..5", 2, bound(5), "2..5"},
		{"1..n", 1, unbounded(), "1..*"},
		{"*", 0, unbounded(), "*"},
		{"n", 0, unbounded(), "*"},
		{" 1..* ", 1, unbounded(), "1..*"},
		{"garbage", 0, unbounded(), "*"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c := ParseCardinality(tt.in)
			if c.Min != tt.min {
				t.Errorf("Min = %d, want %d", c.Min, tt.min)
			}
			switch {
			case tt.max == nil && c.Max != nil:
				t.Errorf("Max = %d, want unbounded", *c.Max)
			case tt.max != nil && c.Max == nil:
				t.Errorf("Max = unbounded, want %d", *tt.max)
			case tt.max != nil && c.Max != nil && *c.Max != *tt.max:
				t.Errorf("Max = %d, want %d", *c.Max, *tt.max)
			}
			if got := c.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
		})
	}
}

func TestRelationRequiredness(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name        string
		cardinality string
		required    *bool
		want        bool
	}{
		{"undeclared cardinality", "", nil, false},
		{"cardinality 1", "1", nil, true},
		{"cardinality 0..1", "0..1", nil, false},
		{"cardinality 1..*", "1..*", nil, true},
		{"cardinality 2", "2", nil, true},
		{"explicit required wins", "0..1", boolPtr(true), true},
		{"explicit optional wins", "1..*", boolPtr(false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RelationDef{Cardinality: tt.cardinality, Required: tt.required}
			if got := r.IsRequired(); got != tt.want {
				t.Errorf("IsRequired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRelationSingle(t *testing.T) {
	tests := []struct {
		cardinality string
		want        bool
	}{
		{"", true}, // defaults to 1
		{"1", true},
		{"0..1", true},
		{"1..*", false},
		{"2", false},
		{"*", false},
	}

	for _, tt := range tests {
		r := RelationDef{Cardinality: tt.cardinality}
		if got := r.Single(); got != tt.want {
			t.Errorf("Single() with cardinality %q = %v, want %v", tt.cardinality, got, tt.want)
		}
	}
}

func TestConstraintBounds(t *testing.T) {
	minV, maxV := 0.0, 100.0
	c := Constraint{Minimum: &minV, Maximum: &maxV}

	if msgs := c.CheckBounds(50); len(msgs) != 0 {
		t.Errorf("50 within [0,100] should pass, got %v", msgs)
	}
	if msgs := c.CheckBounds(-1.5); len(msgs) != 1 {
		t.Errorf("-1.5 should violate the minimum, got %v", msgs)
	}
	if msgs := c.CheckBounds(101); len(msgs) != 1 {
		t.Errorf("101 should violate the maximum, got %v", msgs)
	}
	// non-numeric values are skipped
	if msgs := c.CheckBounds("not a number"); msgs != nil {
		t.Errorf("non-numeric value should be skipped, got %v", msgs)
	}
}

func TestEnumContains(t *testing.T) {
	c := Constraint{Enum: []any{"planned", "operating", 42}}

	tests := []struct {
		v    any
		want bool
	}{
		{"planned", true},
		{"retired", false},
		{42, true},
		{int64(42), true}, // numeric spellings compare equal
		{"42", true},
	}

	for _, tt := range tests {
		if got := c.EnumContains(tt.v); got != tt.want {
			t.Errorf("EnumContains(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}

	var empty Constraint
	if !empty.EnumContains("anything") {
		t.Error("missing enum should allow any value")
	}
}

func TestMatchesPattern(t *testing.T) {
	c := Constraint{Pattern: `[A-Z]\d+`}

	if !c.MatchesPattern("N42") {
		t.Error("N42 should match")
	}
	// the pattern is anchored to the full string
	if c.MatchesPattern("xN42y") {
		t.Error("partial match should not count")
	}

	var empty Constraint
	if !empty.MatchesPattern("whatever") {
		t.Error("missing pattern should match everything")
	}
}

func TestConstraintIsZero(t *testing.T) {
	var c Constraint
	if !c.IsZero() {
		t.Error("empty constraint should be zero")
	}
	c.Pattern = "x"
	if c.IsZero() {
		t.Error("constraint with a pattern is not zero")
	}
}

func TestNormalizeAttrType(t *testing.T) {
	tests := []struct {
		in   string
		want AttrType
	}{
		{"str", AttrString},
		{"string", AttrString},
		{"text", AttrString},
		{"", AttrString},
		{"float", AttrFloat},
		{"number", AttrFloat},
		{"double", AttrFloat},
		{"int", AttrInteger},
		{"integer", AttrInteger},
		{"bool", AttrBoolean},
		{"boolean", AttrBoolean},
	}

	for _, tt := range tests {
		if got := NormalizeAttrType(tt.in); got != tt.want {
			t.Errorf("NormalizeAttrType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if !AttrFloat.IsNumeric() || !AttrInteger.IsNumeric() {
		t.Error("float and integer are numeric")
	}
	if AttrString.IsNumeric() || AttrBoolean.IsNumeric() {
		t.Error("string and boolean are not numeric")
	}
}
