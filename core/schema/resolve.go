package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownClass is returned when a class name cannot be
	// canonicalized against the schema.
	ErrUnknownClass = errors.New("unknown entity class")

	// ErrUnknownParent is returned when a class names a parent the
	// schema does not define.
	ErrUnknownParent = errors.New("unknown parent class")

	// ErrCycle is returned when the inheritance graph contains a cycle.
	ErrCycle = errors.New("inheritance cycle")
)

// Resolved is the schema after inheritance resolution. Classes carry
// their full inherited attribute and relation sets; the parent map,
// children map, descendant closure and subtype predicate are
// precomputed. A Resolved set is read-only and safe to share.
type Resolved struct {
	classes     map[string]*EntityClass
	names       []string
	parents     map[string][]string
	children    map[string][]string
	descendants map[string][]string
	ancestors   map[string]map[string]bool
}

// Resolve canonicalizes parent names, orders the classes topologically,
// merges attributes and relations parent to child, and propagates
// abstractness. It fails on unknown parents and inheritance cycles; on
// failure no class is resolved.
func (s *Set) Resolve() (*Resolved, error) {
	classes := make(map[string]*EntityClass, len(s.specs))
	for _, name := range s.order {
		classes[name] = buildClass(name, *s.specs[name])
	}

	// Canonicalize parent names where possible; unknown names are kept
	// and reported by the topological visit below.
	for _, c := range classes {
		for i, p := range c.Parents {
			if canon, ok := canonicalName(classes, p); ok {
				c.Parents[i] = canon
			}
		}
	}

	// Topological order via DFS with temporary/permanent marks.
	var order []string
	temp := make(map[string]bool)
	perm := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if perm[name] {
			return nil
		}
		if temp[name] {
			return fmt.Errorf("%w at %s", ErrCycle, name)
		}
		temp[name] = true

		for _, parent := range classes[name].Parents {
			if _, ok := classes[parent]; !ok {
				return fmt.Errorf("%w %q for %q", ErrUnknownParent, parent, name)
			}
			if err := visit(parent); err != nil {
				return err
			}
		}

		delete(temp, name)
		perm[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range s.order {
		if !perm[name] {
			if err := visit(name); err != nil {
				return nil, err
			}
		}
	}

	// Merge in topological order so every parent is final before its
	// children. Parents merge left to right with the first definition
	// of a name winning; the child's own definitions override last.
	for _, name := range order {
		c := classes[name]
		if len(c.Parents) == 0 {
			continue
		}

		mergedAttrs := make(map[string]AttributeDef)
		mergedRels := make(map[string]RelationDef)
		abstract := c.Abstract

		for _, pname := range c.Parents {
			p := classes[pname]
			for an, a := range p.Attributes {
				if _, ok := mergedAttrs[an]; !ok {
					mergedAttrs[an] = a
				}
			}
			for rn, r := range p.Relations {
				if _, ok := mergedRels[rn]; !ok {
					mergedRels[rn] = r
				}
			}
			if p.Abstract {
				abstract = true
			}
		}

		for an, a := range c.Attributes {
			mergedAttrs[an] = a
		}
		for rn, r := range c.Relations {
			mergedRels[rn] = r
		}

		c.Attributes = mergedAttrs
		c.Relations = mergedRels
		c.Abstract = abstract
	}

	r := &Resolved{
		classes:     classes,
		parents:     make(map[string][]string, len(classes)),
		children:    make(map[string][]string, len(classes)),
		descendants: make(map[string][]string, len(classes)),
		ancestors:   make(map[string]map[string]bool, len(classes)),
	}

	for name, c := range classes {
		r.names = append(r.names, name)
		parents := make([]string, len(c.Parents))
		copy(parents, c.Parents)
		r.parents[name] = parents
	}
	sort.Strings(r.names)

	r.buildIndexes()
	return r, nil
}

// buildIndexes derives the children map, the transitive descendant
// closure and the reflexive-transitive ancestor sets.
func (r *Resolved) buildIndexes() {
	childSets := make(map[string]map[string]bool, len(r.classes))
	for name := range r.classes {
		childSets[name] = make(map[string]bool)
	}
	for name, parents := range r.parents {
		for _, p := range parents {
			if _, ok := childSets[p]; ok {
				childSets[p][name] = true
			}
		}
	}
	for name, set := range childSets {
		r.children[name] = sortedKeys(set)
	}

	for name := range r.classes {
		anc := map[string]bool{name: true}
		stack := append([]string(nil), r.parents[name]...)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if anc[cur] {
				continue
			}
			anc[cur] = true
			stack = append(stack, r.parents[cur]...)
		}
		r.ancestors[name] = anc
	}

	for name := range r.classes {
		desc := make(map[string]bool)
		stack := append([]string(nil), r.children[name]...)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if desc[cur] {
				continue
			}
			desc[cur] = true
			stack = append(stack, r.children[cur]...)
		}
		r.descendants[name] = sortedKeys(desc)
	}
}

// Class returns the resolved class by exact name.
func (r *Resolved) Class(name string) (*EntityClass, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// Names returns all class names, sorted.
func (r *Resolved) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of resolved classes.
func (r *Resolved) Len() int {
	return len(r.classes)
}

// Parents returns the direct parents of a class.
func (r *Resolved) Parents(name string) []string {
	return r.parents[name]
}

// Children returns the direct children of a class, sorted.
func (r *Resolved) Children(name string) []string {
	return r.children[name]
}

// Descendants returns the transitive descendants of a class, sorted.
func (r *Resolved) Descendants(name string) []string {
	return r.descendants[name]
}

// Canonical maps a class name to its schema spelling: exact match
// first, then case-insensitive, then a conservative normalization that
// turns dashes and spaces into underscores and capitalizes the first
// letter.
func (r *Resolved) Canonical(name string) (string, error) {
	if canon, ok := canonicalName(r.classes, name); ok {
		return canon, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownClass, name)
}

// DerivesFrom reports whether sub is base or inherits from it,
// directly or transitively.
func (r *Resolved) DerivesFrom(sub, base string) bool {
	if sub == base {
		return true
	}
	return r.ancestors[sub][base]
}

// canonicalName resolves a class name against a class map.
func canonicalName[T any](classes map[string]T, name string) (string, bool) {
	if _, ok := classes[name]; ok {
		return name, true
	}
	for k := range classes {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	cand := strings.ReplaceAll(name, "-", "_")
	cand = strings.ReplaceAll(cand, " ", "_")
	if cand != "" {
		cand = strings.ToUpper(cand[:1]) + cand[1:]
	}
	if _, ok := classes[cand]; ok {
		return cand, true
	}
	return "", false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
