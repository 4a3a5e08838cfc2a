package model

import (
	"fmt"
)

// SetOptions carries the optional metadata of an attribute write.
type SetOptions struct {
	// Unit overrides both a unit embedded in structured input and the
	// schema default unit.
	Unit string

	// ProvenanceRef records the source of the value.
	ProvenanceRef string
}

// SetAttribute sets or updates an attribute on an existing entity.
//
// The raw value may be a bare scalar or the structured
// {value, unit, provenance_ref} shape; either way it is normalized and
// the inner value coerced to the declared type. The effective unit
// resolves in priority order explicit option, unit embedded in the
// input, schema default, and must fall inside a declared allowed-unit
// enumeration.
//
// Enum and numeric-bound violations are logged and the value is stored
// anyway; coercion failures, pattern mismatches and disallowed units
// fail the write. The asymmetry keeps iterative model building
// permissive while structural guarantees stay strict.
func (m *Model) SetAttribute(id, name string, raw any, opts SetOptions) error {
	ent, cdef, err := m.entityAndClass(id)
	if err != nil {
		return err
	}

	ad, ok := cdef.Attributes[name]
	if !ok {
		return fmt.Errorf("[%s:%s] %w %q, known: %v", ent.class, id, ErrUnknownAttribute, name, cdef.AttributeNames())
	}

	av := NormalizeValue(raw)
	if opts.Unit != "" {
		av.Unit = opts.Unit
	}
	if opts.ProvenanceRef != "" {
		av.ProvenanceRef = opts.ProvenanceRef
	}

	coerced, err := Coerce(av.Value, ad.Type)
	if err != nil {
		return fmt.Errorf("[%s:%s] attribute %q: %w", ent.class, id, name, err)
	}
	av.Value = coerced

	if !IsEmpty(coerced) {
		if !ad.Constraints.EnumContains(coerced) {
			m.logger.Warn().
				Str("class", ent.class).
				Str("entity", id).
				Str("attribute", name).
				Interface("value", coerced).
				Interface("allowed", ad.Constraints.Enum).
				Msg("value outside declared enum")
		}
		for _, msg := range ad.Constraints.CheckBounds(coerced) {
			m.logger.Warn().
				Str("class", ent.class).
				Str("entity", id).
				Str("attribute", name).
				Msg(msg)
		}
		if ad.Constraints.Pattern != "" {
			s := fmt.Sprintf("%v", coerced)
			if !ad.Constraints.MatchesPattern(s) {
				return fmt.Errorf("[%s:%s] %w: value %q for %q does not match %q",
					ent.class, id, ErrPatternMismatch, s, name, ad.Constraints.Pattern)
			}
		}
	}

	// effective unit: explicit option > embedded > schema default
	if av.Unit == "" {
		av.Unit = ad.Unit.DefaultUnit()
	}
	if av.Unit != "" && !ad.Unit.Allows(av.Unit) {
		return fmt.Errorf("[%s:%s] %w: %q for %q, allowed: %v",
			ent.class, id, ErrUnitNotAllowed, av.Unit, name, ad.Unit.Allowed)
	}

	ent.attrs[name] = av
	return nil
}
