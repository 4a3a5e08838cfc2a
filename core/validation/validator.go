// Package validation runs batch consistency checks over a populated
// model. The pass is read-only and collects diagnostics instead of
// stopping at the first finding; writers stay permissive, this is
// where a model is finally judged.
package validation

import (
	"fmt"
	"strings"

	"github.com/cesdm/modelkit/core/model"
	"github.com/cesdm/modelkit/core/schema"
)

// Diagnostic is a single validation finding on one entity field.
type Diagnostic struct {
	Class    string `json:"class" yaml:"class"`
	EntityID string `json:"entity_id" yaml:"entity_id"`
	Field    string `json:"field,omitempty" yaml:"field,omitempty"`
	Message  string `json:"message" yaml:"message"`
}

// String formats the finding the way reports print it.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s:%s] %s", d.Class, d.EntityID, d.Message)
}

// Result holds all findings of a validation pass.
type Result struct {
	Valid       bool         `json:"valid" yaml:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// add records a finding and clears the valid flag.
func (r *Result) add(class, id, field, format string, args ...any) {
	r.Valid = false
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Class:    class,
		EntityID: id,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Messages returns the formatted findings in report order.
func (r Result) Messages() []string {
	if len(r.Diagnostics) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		msgs[i] = d.String()
	}
	return msgs
}

// Error returns all findings joined into one message, empty when the
// result is valid.
func (r Result) Error() string {
	if r.Valid {
		return ""
	}
	return strings.Join(r.Messages(), "; ")
}

// Validate checks every entity in the model against its resolved
// class: required attributes, type coercibility, numeric bounds, enum
// membership, pattern and length constraints, then required relations,
// target counts, target uniqueness, and per-target existence and class
// compatibility. The report order is deterministic: classes, entities
// within a class, and declared fields within an entity are visited in
// sorted order.
func Validate(m *model.Model) Result {
	res := Result{Valid: true}
	rs := m.Schema()
	for _, class := range m.Classes() {
		ec, ok := rs.Class(class)
		if !ok {
			continue
		}
		for _, ent := range m.EntitiesOf(class) {
			validateEntity(&res, m, rs, ec, ent)
		}
	}
	return res
}

// ValidateEntity applies the same checks as Validate restricted to a
// single entity, for spot checks right after a write.
func ValidateEntity(m *model.Model, ent *model.Entity) Result {
	res := Result{Valid: true}
	rs := m.Schema()
	if ec, ok := rs.Class(ent.Class()); ok {
		validateEntity(&res, m, rs, ec, ent)
	}
	return res
}

func validateEntity(res *Result, m *model.Model, rs *schema.Resolved, ec *schema.EntityClass, ent *model.Entity) {
	class, id := ent.Class(), ent.ID()
	for _, name := range ec.AttributeNames() {
		checkAttribute(res, class, id, name, ec.Attributes[name], ent)
	}
	for _, name := range ec.RelationNames() {
		checkRelation(res, m, rs, class, id, name, ec.Relations[name], ent)
	}
}

// checkAttribute enforces requiredness, type and constraints for one
// declared attribute. A value that fails coercion skips the constraint
// checks since there is nothing comparable left to judge.
func checkAttribute(res *Result, class, id, name string, ad schema.AttributeDef, ent *model.Entity) {
	av, ok := ent.Attribute(name)
	present := ok && !model.IsEmpty(av.Value)

	if ad.Required && !present {
		res.add(class, id, name, "Missing required attribute '%s'", name)
		return
	}
	if !present {
		return
	}

	coerced, err := model.Coerce(av.Value, ad.Type)
	if err != nil {
		res.add(class, id, name, "Attribute '%s' type error: %v", name, err)
		return
	}

	c := ad.Constraints
	if ad.Type.IsNumeric() {
		// Bounds on non-numeric types are ignored, not reported.
		if f, ok := asFloat(coerced); ok {
			if c.Minimum != nil && f < *c.Minimum {
				res.add(class, id, name, "Attribute '%s' violates minimum %v: %v", name, *c.Minimum, coerced)
			}
			if c.Maximum != nil && f > *c.Maximum {
				res.add(class, id, name, "Attribute '%s' violates maximum %v: %v", name, *c.Maximum, coerced)
			}
		}
	}

	if len(c.Enum) > 0 && !c.EnumContains(coerced) {
		res.add(class, id, name, "Attribute '%s' not in enum [%s]: %v", name, joinAny(c.Enum), coerced)
	}

	if c.Pattern != "" {
		s := fmt.Sprintf("%v", coerced)
		if !c.MatchesPattern(s) {
			res.add(class, id, name, "Attribute '%s' does not match pattern '%s': '%s'", name, c.Pattern, s)
		}
	}

	if s, ok := coerced.(string); ok {
		if c.MinLength != nil && len(s) < *c.MinLength {
			res.add(class, id, name, "Attribute '%s' length<%d", name, *c.MinLength)
		}
		if c.MaxLength != nil && len(s) > *c.MaxLength {
			res.add(class, id, name, "Attribute '%s' length>%d", name, *c.MaxLength)
		}
	}
}

// checkRelation enforces requiredness, target counts and target rules
// for one declared relation. Existence and class compatibility are
// judged per target id.
func checkRelation(res *Result, m *model.Model, rs *schema.Resolved, class, id, name string, rd schema.RelationDef, ent *model.Entity) {
	targets := ent.RelationTargets(name)

	if rd.IsRequired() && len(targets) == 0 {
		res.add(class, id, name, "Missing required relation '%s'", name)
		return
	}
	if len(targets) == 0 {
		return
	}

	lo, hi := targetBounds(rd)
	if len(targets) < lo {
		res.add(class, id, name, "Relation '%s' has <%d targets", name, lo)
	}
	if hi != nil && len(targets) > *hi {
		res.add(class, id, name, "Relation '%s' has >%d targets", name, *hi)
	}

	if rd.Constraints.Unique && hasDuplicates(targets) {
		res.add(class, id, name, "Relation '%s' contains duplicate target ids", name)
	}

	allowed := "<any>"
	if len(rd.Targets) > 0 {
		allowed = strings.Join(rd.Targets, ", ")
	}
	for _, tid := range targets {
		target, ok := m.Entity(tid)
		if !ok {
			res.add(class, id, name, "Relation '%s' with '%s' not among entities of allowed classes [%s]", name, tid, allowed)
			continue
		}
		if len(rd.Targets) == 0 {
			continue
		}
		if !compatible(rs, target.Class(), rd.Targets) {
			res.add(class, id, name, "Relation '%s' with '%s' is of class '%s' not compatible with any of [%s]", name, tid, target.Class(), allowed)
		}
	}
}

// targetBounds merges the declared cardinality with the optional
// min_items/max_items constraints, keeping the stricter side of each.
// An undeclared cardinality imposes no bounds of its own.
func targetBounds(rd schema.RelationDef) (int, *int) {
	var lo int
	var hi *int
	if rd.Cardinality != "" {
		b := rd.Bounds()
		lo, hi = b.Min, b.Max
	}
	c := rd.Constraints
	if c.MinItems != nil && *c.MinItems > lo {
		lo = *c.MinItems
	}
	if c.MaxItems != nil && (hi == nil || *c.MaxItems < *hi) {
		hi = c.MaxItems
	}
	return lo, hi
}

// compatible reports whether class equals or derives from at least one
// of the declared target classes.
func compatible(rs *schema.Resolved, class string, wants []string) bool {
	for _, want := range wants {
		if canon, err := rs.Canonical(want); err == nil {
			want = canon
		}
		if rs.DerivesFrom(class, want) {
			return true
		}
	}
	return false
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func joinAny(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, ", ")
}
