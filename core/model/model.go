// Package model implements the entity store and the attribute and
// relation write paths over a resolved schema.
package model

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/cesdm/modelkit/core/schema"
)

var (
	// ErrDuplicateID is returned when an entity id is already used,
	// in any class.
	ErrDuplicateID = errors.New("duplicate entity id")

	// ErrUnknownEntity is returned when no entity carries the id.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUnknownAttribute is returned for attribute names the resolved
	// class does not declare.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrUnknownRelation is returned for relation names the resolved
	// class does not declare.
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrUnknownField is returned by SetField when a name is neither an
	// attribute nor a relation of the class.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnitNotAllowed is returned when a unit falls outside a
	// declared allowed-unit enumeration.
	ErrUnitNotAllowed = errors.New("unit not allowed")

	// ErrPatternMismatch is returned when a value fails its declared
	// pattern constraint.
	ErrPatternMismatch = errors.New("pattern mismatch")
)

// Model holds every entity of one domain-model instance, keyed by class
// and by globally unique id. The resolved schema drives all checks and
// is read-only.
//
// A Model is mutable shared state without internal locking: it assumes
// one logical owner. Callers that share a Model across goroutines must
// serialize mutation themselves.
type Model struct {
	schema   *schema.Resolved
	logger   zerolog.Logger
	entities map[string]map[string]*Entity // class → id → entity
	byID     map[string]*Entity
}

// New creates an empty model over a resolved schema.
func New(resolved *schema.Resolved, logger zerolog.Logger) *Model {
	return &Model{
		schema:   resolved,
		logger:   logger,
		entities: make(map[string]map[string]*Entity),
		byID:     make(map[string]*Entity),
	}
}

// Schema returns the resolved schema the model was built over.
func (m *Model) Schema() *schema.Resolved {
	return m.schema
}

// AddEntity creates a new entity of the given class. The class name is
// canonicalized against the schema; the id must be unused across every
// class. Attribute defaults are applied through the regular
// SetAttribute path so they face the same coercion and checks as manual
// writes; a failing default rolls the entity back.
func (m *Model) AddEntity(class, id string) (*Entity, error) {
	cname, err := m.schema.Canonical(class)
	if err != nil {
		return nil, err
	}

	if other, exists := m.byID[id]; exists {
		return nil, fmt.Errorf("%w: %q already used in class %q", ErrDuplicateID, id, other.class)
	}

	cdef, _ := m.schema.Class(cname)
	ent := newEntity(cname, id)
	if m.entities[cname] == nil {
		m.entities[cname] = make(map[string]*Entity)
	}
	m.entities[cname][id] = ent
	m.byID[id] = ent

	for _, an := range cdef.AttributeNames() {
		ad := cdef.Attributes[an]
		if ad.Default == nil {
			continue
		}
		if err := m.SetAttribute(id, an, ad.Default, SetOptions{}); err != nil {
			delete(m.entities[cname], id)
			delete(m.byID, id)
			return nil, fmt.Errorf("apply default for %q: %w", an, err)
		}
	}

	m.logger.Debug().Str("class", cname).Str("id", id).Msg("entity created")
	return ent, nil
}

// Entity returns the entity with the given id, from any class.
func (m *Model) Entity(id string) (*Entity, bool) {
	ent, ok := m.byID[id]
	return ent, ok
}

// EntitiesOf returns the entities of one class, sorted by id. Only
// exact class membership counts; subclass instances live under their
// own class.
func (m *Model) EntitiesOf(class string) []*Entity {
	ents := m.entities[class]
	out := make([]*Entity, 0, len(ents))
	for _, e := range ents {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Classes returns the class names that currently hold at least one
// entity, sorted.
func (m *Model) Classes() []string {
	out := make([]string, 0, len(m.entities))
	for name, ents := range m.entities {
		if len(ents) > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the total number of entities across all classes.
func (m *Model) Len() int {
	return len(m.byID)
}

// SetField routes a write to SetAttribute or SetRelation depending on
// what the entity's class declares under the name. Relation values may
// be a single target id, a []string, or a []any of ids.
func (m *Model) SetField(id, name string, value any) error {
	ent, cdef, err := m.entityAndClass(id)
	if err != nil {
		return err
	}

	if _, ok := cdef.Attributes[name]; ok {
		return m.SetAttribute(id, name, value, SetOptions{})
	}

	if _, ok := cdef.Relations[name]; ok {
		switch v := value.(type) {
		case []string:
			return m.SetRelationTargets(id, name, v)
		case []any:
			targets := make([]string, 0, len(v))
			for _, t := range v {
				targets = append(targets, fmt.Sprintf("%v", t))
			}
			return m.SetRelationTargets(id, name, targets)
		default:
			return m.SetRelation(id, name, fmt.Sprintf("%v", v))
		}
	}

	return fmt.Errorf("[%s:%s] %w %q (neither attribute nor relation)", ent.class, id, ErrUnknownField, name)
}

func (m *Model) entityAndClass(id string) (*Entity, *schema.EntityClass, error) {
	ent, ok := m.byID[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no entity with id %q", ErrUnknownEntity, id)
	}
	cdef, ok := m.schema.Class(ent.class)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", schema.ErrUnknownClass, ent.class)
	}
	return ent, cdef, nil
}
