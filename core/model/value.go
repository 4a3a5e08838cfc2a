package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cesdm/modelkit/core/schema"
)

// AttributeValue is the one normalized shape every attribute is stored
// in: the typed value plus optional unit and provenance reference. All
// serializers and the validator read attributes through this record
// instead of sniffing shapes at each call site.
type AttributeValue struct {
	Value         any    `json:"value" yaml:"value"`
	Unit          string `json:"unit,omitempty" yaml:"unit,omitempty"`
	ProvenanceRef string `json:"provenance_ref,omitempty" yaml:"provenance_ref,omitempty"`
}

// NormalizeValue turns raw write input into an AttributeValue. It
// accepts an AttributeValue, a map carrying a "value" key (the shape
// structured imports decode to), or any bare scalar.
func NormalizeValue(raw any) AttributeValue {
	switch v := raw.(type) {
	case AttributeValue:
		return v
	case *AttributeValue:
		if v == nil {
			return AttributeValue{}
		}
		return *v
	case map[string]any:
		inner, ok := v["value"]
		if !ok {
			return AttributeValue{Value: raw}
		}
		av := AttributeValue{Value: inner}
		if u, ok := v["unit"].(string); ok {
			av.Unit = u
		}
		if p, ok := v["provenance_ref"].(string); ok {
			av.ProvenanceRef = p
		}
		return av
	default:
		return AttributeValue{Value: raw}
	}
}

// IsEmpty reports whether a stored value counts as absent. nil and the
// empty string are absent; everything else, including false and 0, is
// present.
func IsEmpty(v any) bool {
	return v == nil || v == ""
}

// CoerceError reports a value that cannot be converted to its declared
// attribute type.
type CoerceError struct {
	Value any
	Type  schema.AttrType
}

func (e *CoerceError) Error() string {
	return fmt.Sprintf("cannot parse '%v' as %s", e.Value, e.Type)
}

// Coerce converts a raw value to the declared attribute type. Absent
// values (nil, "") pass through untouched; the validator judges them
// against requiredness instead.
//
// Heterogeneous numeric input is tolerated: integers accept
// decimal-looking strings via float-then-truncate, floats accept a
// comma as decimal separator. Booleans accept the case-insensitive
// spellings true/1/yes and false/0/no.
func Coerce(raw any, t schema.AttrType) (any, error) {
	if IsEmpty(raw) {
		return raw, nil
	}

	switch t {
	case schema.AttrFloat:
		return coerceFloat(raw)
	case schema.AttrInteger:
		return coerceInt(raw)
	case schema.AttrBoolean:
		return coerceBool(raw)
	case schema.AttrString:
		return coerceString(raw), nil
	default:
		return raw, nil
	}
}

func coerceFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := parseFloat(v)
		if err != nil {
			return nil, &CoerceError{Value: raw, Type: schema.AttrFloat}
		}
		return f, nil
	default:
		return nil, &CoerceError{Value: raw, Type: schema.AttrFloat}
	}
}

func coerceInt(raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		f, err := parseFloat(v)
		if err != nil {
			return nil, &CoerceError{Value: raw, Type: schema.AttrInteger}
		}
		return int64(f), nil
	default:
		return nil, &CoerceError{Value: raw, Type: schema.AttrInteger}
	}
}

func coerceBool(raw any) (any, error) {
	if b, ok := raw.(bool); ok {
		return b, nil
	}
	switch strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", raw))) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return nil, &CoerceError{Value: raw, Type: schema.AttrBoolean}
	}
}

func coerceString(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", raw)
}

// parseFloat accepts a comma as decimal separator.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	return strconv.ParseFloat(s, 64)
}
