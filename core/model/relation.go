package model

import (
	"fmt"

	"github.com/cesdm/modelkit/core/schema"
)

// SetRelation points a declared relation at a target entity. The write
// is structural only: target existence and class compatibility are
// deferred to the validator.
//
// Multi-valued relations accumulate targets as an ordered,
// duplicate-free list; single-valued ones replace the previous target.
func (m *Model) SetRelation(id, name, target string) error {
	ent, rd, err := m.relationDef(id, name)
	if err != nil {
		return err
	}

	if rd.Single() {
		ent.rels[name] = []string{target}
		return nil
	}

	for _, t := range ent.rels[name] {
		if t == target {
			return nil
		}
	}
	ent.rels[name] = append(ent.rels[name], target)
	return nil
}

// SetRelationTargets replaces the stored target list wholesale. Import
// paths use it to restore multi-valued relations in one call.
func (m *Model) SetRelationTargets(id, name string, targets []string) error {
	ent, _, err := m.relationDef(id, name)
	if err != nil {
		return err
	}

	if len(targets) == 0 {
		delete(ent.rels, name)
		return nil
	}
	ent.rels[name] = append([]string(nil), targets...)
	return nil
}

func (m *Model) relationDef(id, name string) (*Entity, schema.RelationDef, error) {
	ent, cdef, err := m.entityAndClass(id)
	if err != nil {
		return nil, schema.RelationDef{}, err
	}

	rd, ok := cdef.Relations[name]
	if !ok {
		return nil, schema.RelationDef{}, fmt.Errorf("[%s:%s] %w %q, known: %v",
			ent.class, id, ErrUnknownRelation, name, cdef.RelationNames())
	}
	return ent, rd, nil
}
