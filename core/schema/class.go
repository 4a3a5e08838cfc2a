package schema

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// EntityClass is the schema-level description of one entity class.
// After Resolve it contains the full inherited attribute and relation
// sets and canonicalized parent names.
type EntityClass struct {
	// Name of the class.
	Name string

	// Description is free-form documentation.
	Description string

	// Parents lists the direct parent class names in declaration order.
	Parents []string

	// Abstract classes cannot be instantiated. A class with an abstract
	// ancestor is abstract after resolution.
	Abstract bool

	// Attributes maps attribute name to definition.
	Attributes map[string]AttributeDef

	// Relations maps relation name to definition.
	Relations map[string]RelationDef
}

// AttributeNames returns the attribute names in sorted order.
func (c *EntityClass) AttributeNames() []string {
	names := make([]string, 0, len(c.Attributes))
	for n := range c.Attributes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RelationNames returns the relation names in sorted order.
func (c *EntityClass) RelationNames() []string {
	names := make([]string, 0, len(c.Relations))
	for n := range c.Relations {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// classSpec is the raw YAML shape of a class definition. Scalar fields
// are pointers so that later fragments only overwrite what they set.
type classSpec struct {
	Name         string     `yaml:"name"`
	Description  *string    `yaml:"description"`
	Abstract     *bool      `yaml:"abstract"`
	Parents      stringList `yaml:"parents"`
	Parent       string     `yaml:"parent"`
	InheritsFrom stringList `yaml:"inherits_from"`
	Attributes   attrBlock  `yaml:"attributes"`
	Relations    relBlock   `yaml:"relations"`
}

// parentNames collapses the accepted parent spellings into one list.
func (s classSpec) parentNames() []string {
	if len(s.Parents) > 0 {
		return s.Parents
	}
	if s.Parent != "" {
		return []string{s.Parent}
	}
	return s.InheritsFrom
}

// declaresParents reports whether the fragment sets parents at all, so
// merging can distinguish "unset" from "explicitly none".
func (s classSpec) declaresParents() bool {
	return s.Parents != nil || s.Parent != "" || s.InheritsFrom != nil
}

// attrBlock decodes the attributes section in either encoding: a
// name-keyed mapping, or a sequence of objects carrying an "id" key.
// Order of first appearance is preserved for deterministic output.
type attrBlock struct {
	specs map[string]attrSpec
	order []string
}

func (b *attrBlock) UnmarshalYAML(node *yaml.Node) error {
	b.specs = make(map[string]attrSpec)

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i].Value
			var spec attrSpec
			if node.Content[i+1].Kind != yaml.ScalarNode {
				if err := node.Content[i+1].Decode(&spec); err != nil {
					return fmt.Errorf("attribute %q: %w", name, err)
				}
			}
			b.set(name, spec)
		}
		return nil
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				continue
			}
			var entry struct {
				ID   string   `yaml:"id"`
				Spec attrSpec `yaml:",inline"`
			}
			if err := item.Decode(&entry); err != nil {
				return fmt.Errorf("attribute list entry: %w", err)
			}
			if entry.ID == "" {
				continue
			}
			b.set(entry.ID, entry.Spec)
		}
		return nil
	default:
		// tolerate null and stray scalars
		return nil
	}
}

func (b *attrBlock) set(name string, spec attrSpec) {
	if b.specs == nil {
		b.specs = make(map[string]attrSpec)
	}
	if _, seen := b.specs[name]; !seen {
		b.order = append(b.order, name)
	}
	b.specs[name] = spec
}

// relBlock mirrors attrBlock for the relations section.
type relBlock struct {
	specs map[string]relSpec
	order []string
}

func (b *relBlock) UnmarshalYAML(node *yaml.Node) error {
	b.specs = make(map[string]relSpec)

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i].Value
			var spec relSpec
			if node.Content[i+1].Kind != yaml.ScalarNode {
				if err := node.Content[i+1].Decode(&spec); err != nil {
					return fmt.Errorf("relation %q: %w", name, err)
				}
			}
			b.set(name, spec)
		}
		return nil
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				continue
			}
			var entry struct {
				ID   string  `yaml:"id"`
				Spec relSpec `yaml:",inline"`
			}
			if err := item.Decode(&entry); err != nil {
				return fmt.Errorf("relation list entry: %w", err)
			}
			if entry.ID == "" {
				continue
			}
			b.set(entry.ID, entry.Spec)
		}
		return nil
	default:
		return nil
	}
}

func (b *relBlock) set(name string, spec relSpec) {
	if b.specs == nil {
		b.specs = make(map[string]relSpec)
	}
	if _, seen := b.specs[name]; !seen {
		b.order = append(b.order, name)
	}
	b.specs[name] = spec
}

// mergeClassSpec folds a later fragment of the same class into an
// accumulated one: scalars are overwritten when the fragment sets them,
// attribute and relation maps merge key by key.
func mergeClassSpec(into *classSpec, src classSpec) {
	if src.Description != nil {
		into.Description = src.Description
	}
	if src.Abstract != nil {
		into.Abstract = src.Abstract
	}
	if src.declaresParents() {
		into.Parents = src.parentNames()
		into.Parent = ""
		into.InheritsFrom = nil
	}
	for _, name := range src.Attributes.order {
		into.Attributes.set(name, src.Attributes.specs[name])
	}
	for _, name := range src.Relations.order {
		into.Relations.set(name, src.Relations.specs[name])
	}
}

// buildClass turns an accumulated spec into an EntityClass.
func buildClass(name string, spec classSpec) *EntityClass {
	c := &EntityClass{
		Name:       name,
		Parents:    spec.parentNames(),
		Attributes: make(map[string]AttributeDef, len(spec.Attributes.specs)),
		Relations:  make(map[string]RelationDef, len(spec.Relations.specs)),
	}
	if spec.Description != nil {
		c.Description = *spec.Description
	}
	if spec.Abstract != nil {
		c.Abstract = *spec.Abstract
	}
	for _, an := range spec.Attributes.order {
		c.Attributes[an] = buildAttribute(an, spec.Attributes.specs[an])
	}
	for _, rn := range spec.Relations.order {
		c.Relations[rn] = buildRelation(rn, spec.Relations.specs[rn])
	}
	return c
}
