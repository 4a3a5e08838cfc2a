package model

import "sort"

// Entity is one instance of a schema class. Entities are exclusively
// owned by their Model: reads go through the accessors below, every
// mutation through the Model's setters.
type Entity struct {
	class string
	id    string
	attrs map[string]AttributeValue
	rels  map[string][]string
}

func newEntity(class, id string) *Entity {
	return &Entity{
		class: class,
		id:    id,
		attrs: make(map[string]AttributeValue),
		rels:  make(map[string][]string),
	}
}

// Class returns the resolved class name.
func (e *Entity) Class() string { return e.class }

// ID returns the globally unique entity id.
func (e *Entity) ID() string { return e.id }

// Attribute returns the stored value for name.
func (e *Entity) Attribute(name string) (AttributeValue, bool) {
	av, ok := e.attrs[name]
	return av, ok
}

// AttributeNames returns the names of the attributes set on this
// entity, sorted.
func (e *Entity) AttributeNames() []string {
	names := make([]string, 0, len(e.attrs))
	for n := range e.attrs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RelationTargets returns the stored target ids for name in insertion
// order. The returned slice is a copy.
func (e *Entity) RelationTargets(name string) []string {
	targets := e.rels[name]
	if len(targets) == 0 {
		return nil
	}
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}

// RelationNames returns the names of the relations set on this entity,
// sorted.
func (e *Entity) RelationNames() []string {
	names := make([]string, 0, len(e.rels))
	for n := range e.rels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
