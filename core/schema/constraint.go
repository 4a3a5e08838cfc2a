package schema

import (
	"fmt"
	"regexp"
)

// Constraint bundles the validation rules an attribute or relation may
// declare. All fields are optional; numeric bounds are pointers so an
// absent bound is distinguishable from zero.
type Constraint struct {
	// Enum lists the allowed values.
	Enum []any `yaml:"enum,omitempty" json:"enum,omitempty"`

	// Minimum and Maximum bound numeric values (inclusive).
	Minimum *float64 `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum *float64 `yaml:"maximum,omitempty" json:"maximum,omitempty"`

	// Pattern is a regular expression string values must fully match.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// Ref names a class this attribute references. Narrow CSV exports
	// surface it in the relation column.
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`

	// MinLength and MaxLength bound string lengths.
	MinLength *int `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength *int `yaml:"max_length,omitempty" json:"max_length,omitempty"`

	// MinItems and MaxItems bound relation target counts.
	MinItems *int `yaml:"min_items,omitempty" json:"min_items,omitempty"`
	MaxItems *int `yaml:"max_items,omitempty" json:"max_items,omitempty"`

	// Unique requires relation targets to be distinct.
	Unique bool `yaml:"unique,omitempty" json:"unique,omitempty"`
}

// IsZero reports whether no rule is set.
func (c Constraint) IsZero() bool {
	return c.Enum == nil && c.Minimum == nil && c.Maximum == nil &&
		c.Pattern == "" && c.Ref == "" &&
		c.MinLength == nil && c.MaxLength == nil &&
		c.MinItems == nil && c.MaxItems == nil && !c.Unique
}

// EnumContains reports whether v is one of the enum values. Values are
// compared by their string rendering so that 1 and int64(1) match.
// Returns true when no enum is declared.
func (c Constraint) EnumContains(v any) bool {
	if c.Enum == nil {
		return true
	}
	want := fmt.Sprintf("%v", v)
	for _, e := range c.Enum {
		if fmt.Sprintf("%v", e) == want {
			return true
		}
	}
	return false
}

// MatchesPattern reports whether s fully matches the pattern. A missing
// or uncompilable pattern matches everything; pattern syntax is checked
// separately at load time.
func (c Constraint) MatchesPattern(s string) bool {
	if c.Pattern == "" {
		return true
	}
	re, err := compileFull(c.Pattern)
	if err != nil {
		return true
	}
	return re.MatchString(s)
}

// compileFull compiles a pattern anchored to the whole string.
func compileFull(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")$")
}

// CheckBounds compares a numeric value against Minimum/Maximum and
// returns a message per violated bound. Non-numeric values are skipped.
func (c Constraint) CheckBounds(v any) []string {
	n, ok := toFloat(v)
	if !ok {
		return nil
	}

	var msgs []string
	if c.Minimum != nil && n < *c.Minimum {
		msgs = append(msgs, fmt.Sprintf("value %v is below minimum %v", v, *c.Minimum))
	}
	if c.Maximum != nil && n > *c.Maximum {
		msgs = append(msgs, fmt.Sprintf("value %v is above maximum %v", v, *c.Maximum))
	}
	return msgs
}

// toFloat converts the numeric types YAML and JSON decoding produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// isNumeric reports whether v carries a numeric Go type.
func isNumeric(v any) bool {
	_, ok := toFloat(v)
	return ok
}
