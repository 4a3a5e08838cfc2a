package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// AttrType is the declared primitive type of an attribute.
type AttrType string

const (
	AttrString  AttrType = "string"
	AttrFloat   AttrType = "float"
	AttrInteger AttrType = "integer"
	AttrBoolean AttrType = "boolean"
)

// NormalizeAttrType maps the type spellings accepted in schema files to
// their canonical form. Unknown spellings are returned unchanged and
// behave like string.
func NormalizeAttrType(s string) AttrType {
	switch s {
	case "", "string", "str", "text":
		return AttrString
	case "float", "number", "double", "decimal":
		return AttrFloat
	case "int", "integer":
		return AttrInteger
	case "bool", "boolean":
		return AttrBoolean
	default:
		return AttrType(s)
	}
}

// IsNumeric reports whether the type carries numeric values.
func (t AttrType) IsNumeric() bool {
	return t == AttrFloat || t == AttrInteger
}

// UnitSpec describes the unit of measure an attribute carries. A bare
// string in the schema becomes the default unit with no restriction; a
// nested spec with constraints.enum restricts the unit to the listed
// values, the first of which is the default.
type UnitSpec struct {
	Default string
	Allowed []string
}

// UnmarshalYAML accepts both unit encodings.
func (u *UnitSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return fmt.Errorf("unit: %w", err)
		}
		u.Default = s
		return nil
	case yaml.MappingNode:
		var spec struct {
			Type        string `yaml:"type"`
			Constraints struct {
				Enum []string `yaml:"enum"`
			} `yaml:"constraints"`
			Enum []string `yaml:"enum"`
		}
		if err := node.Decode(&spec); err != nil {
			return fmt.Errorf("unit: %w", err)
		}
		allowed := spec.Constraints.Enum
		if len(allowed) == 0 {
			allowed = spec.Enum
		}
		if len(allowed) > 0 {
			u.Allowed = allowed
			u.Default = allowed[0]
		}
		return nil
	default:
		return fmt.Errorf("unit: unsupported YAML shape")
	}
}

// DefaultUnit returns the default unit, or "" when unitless.
func (u *UnitSpec) DefaultUnit() string {
	if u == nil {
		return ""
	}
	return u.Default
}

// Allows reports whether the given unit is permitted. An empty allowed
// list permits any unit.
func (u *UnitSpec) Allows(unit string) bool {
	if u == nil || len(u.Allowed) == 0 {
		return true
	}
	for _, a := range u.Allowed {
		if a == unit {
			return true
		}
	}
	return false
}

// AttributeDef defines a single attribute of an entity class.
type AttributeDef struct {
	// Name of the attribute within its class.
	Name string

	// Type is the declared primitive type.
	Type AttrType

	// Required marks the attribute as mandatory at validation time.
	Required bool

	// Description is free-form documentation.
	Description string

	// Default is applied through the regular write path when an entity
	// is created.
	Default any

	// Constraints hold the declared validation rules.
	Constraints Constraint

	// Unit describes the unit of measure; nil for unitless attributes.
	Unit *UnitSpec

	// Group buckets attributes for presentation ("master_data" when
	// unset); Order sorts within the group.
	Group string
	Order *int
}

// attrSpec is the YAML shape of an attribute definition. It covers the
// nested "value:" style and the flat style in one struct; the presence
// of a value block selects the nested interpretation.
type attrSpec struct {
	Description string     `yaml:"description"`
	Required    bool       `yaml:"required"`
	Group       string     `yaml:"group"`
	Order       *int       `yaml:"order"`
	Unit        *UnitSpec  `yaml:"unit"`
	Value       *valueSpec `yaml:"value"`

	// flat style
	Type        string     `yaml:"type"`
	Default     any        `yaml:"default"`
	Constraints Constraint `yaml:"constraints"`
	Enum        []any      `yaml:"enum"`
}

type valueSpec struct {
	Type        string     `yaml:"type"`
	Default     any        `yaml:"default"`
	Constraints Constraint `yaml:"constraints"`
	Enum        []any      `yaml:"enum"`
}

// buildAttribute turns a decoded spec into an AttributeDef.
func buildAttribute(name string, spec attrSpec) AttributeDef {
	ad := AttributeDef{
		Name:        name,
		Required:    spec.Required,
		Description: spec.Description,
		Unit:        spec.Unit,
		Group:       spec.Group,
		Order:       spec.Order,
	}

	if spec.Value != nil {
		ad.Type = NormalizeAttrType(spec.Value.Type)
		ad.Default = spec.Value.Default
		ad.Constraints = spec.Value.Constraints
		// enum may sit at value level for convenience
		if ad.Constraints.Enum == nil && spec.Value.Enum != nil {
			ad.Constraints.Enum = spec.Value.Enum
		}
		return ad
	}

	ad.Type = NormalizeAttrType(spec.Type)
	ad.Default = spec.Default
	ad.Constraints = spec.Constraints
	if ad.Constraints.Enum == nil && spec.Enum != nil {
		ad.Constraints.Enum = spec.Enum
	}
	return ad
}
