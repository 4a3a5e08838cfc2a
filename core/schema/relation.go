package schema

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCardinality applies when a relation declares none.
const DefaultCardinality = "1"

// RelationDef defines a named, typed reference from one entity class to
// target entities.
type RelationDef struct {
	// Name of the relation within its class.
	Name string

	// Targets lists the allowed target class names in declaration
	// order. Empty means unconstrained.
	Targets []string

	// Cardinality is the declared cardinality string ("0", "1",
	// "0..1", "1..*", "2", ...). Empty when the schema declared none;
	// bounds then default to "1" but the relation is not implicitly
	// required.
	Cardinality string

	// Required marks the relation as mandatory. When nil, requiredness
	// derives from the declared cardinality's lower bound.
	Required *bool

	// Description is free-form documentation.
	Description string

	// Constraints hold min_items/max_items/unique rules.
	Constraints Constraint
}

// Target returns the first declared target, or "".
func (r RelationDef) Target() string {
	if len(r.Targets) == 0 {
		return ""
	}
	return r.Targets[0]
}

// CardinalityOrDefault returns the declared cardinality, or "1".
func (r RelationDef) CardinalityOrDefault() string {
	if strings.TrimSpace(r.Cardinality) == "" {
		return DefaultCardinality
	}
	return r.Cardinality
}

// Bounds returns the parsed cardinality bounds.
func (r RelationDef) Bounds() Cardinality {
	return ParseCardinality(r.CardinalityOrDefault())
}

// IsRequired reports whether the relation must be present: either the
// explicit flag, or a declared cardinality with a lower bound of at
// least one. An undeclared cardinality never makes a relation required.
func (r RelationDef) IsRequired() bool {
	if r.Required != nil {
		return *r.Required
	}
	if strings.TrimSpace(r.Cardinality) == "" {
		return false
	}
	return ParseCardinality(r.Cardinality).Min > 0
}

// Single reports whether the relation holds at most one target.
func (r RelationDef) Single() bool {
	b := r.Bounds()
	return b.Max != nil && *b.Max <= 1
}

// Cardinality is a parsed cardinality string.
type Cardinality struct {
	// Min is the lower bound.
	Min int

	// Max is the upper bound; nil means unbounded.
	Max *int
}

// ParseCardinality parses strings like "0..1", "1..*", "2..5", "1",
// "0" and "*". Unparseable input yields (0, unbounded).
func ParseCardinality(card string) Cardinality {
	card = strings.TrimSpace(card)

	if lo, hi, ok := strings.Cut(card, ".."); ok {
		c := Cardinality{}
		if n, err := strconv.Atoi(lo); err == nil {
			c.Min = n
		}
		if hi != "*" && hi != "n" {
			if n, err := strconv.Atoi(hi); err == nil {
				c.Max = &n
			}
		}
		return c
	}

	if card == "*" || card == "n" {
		return Cardinality{}
	}

	if n, err := strconv.Atoi(card); err == nil {
		return Cardinality{Min: n, Max: &n}
	}

	return Cardinality{}
}

// String renders the bounds back into cardinality notation.
func (c Cardinality) String() string {
	if c.Max == nil {
		if c.Min == 0 {
			return "*"
		}
		return fmt.Sprintf("%d..*", c.Min)
	}
	if c.Min == *c.Max {
		return strconv.Itoa(c.Min)
	}
	return fmt.Sprintf("%d..%d", c.Min, *c.Max)
}

// relSpec is the YAML shape of a relation definition. Targets come from
// "target" or "ref", as a scalar or a list.
type relSpec struct {
	Target      stringList `yaml:"target"`
	Ref         stringList `yaml:"ref"`
	Cardinality scalarText `yaml:"cardinality"`
	Required    *bool      `yaml:"required"`
	Description string     `yaml:"description"`
	Constraints Constraint `yaml:"constraints"`
}

// buildRelation turns a decoded spec into a RelationDef.
func buildRelation(name string, spec relSpec) RelationDef {
	targets := []string(spec.Target)
	if len(targets) == 0 {
		targets = []string(spec.Ref)
	}
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}

	return RelationDef{
		Name:        name,
		Targets:     out,
		Cardinality: string(spec.Cardinality),
		Required:    spec.Required,
		Description: spec.Description,
		Constraints: spec.Constraints,
	}
}

// stringList decodes a YAML scalar or sequence into a slice.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if s != "" {
			*l = []string{s}
		}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*l = ss
		return nil
	default:
		return fmt.Errorf("expected scalar or sequence")
	}
}

// scalarText decodes any YAML scalar (string, int, float) as text, so
// `cardinality: 1` and `cardinality: "1"` behave the same.
type scalarText string

func (t *scalarText) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected scalar")
	}
	*t = scalarText(node.Value)
	return nil
}
