package domain

import (
	"encoding/json"
	"fmt"
)

// PropertyBag is the open key/value map holding a component's configuration.
// Its legal shape is whatever the component's schema describes.
type PropertyBag map[string]any

// Clone returns a deep copy. Nested maps and slices are copied so the result
// shares no memory with b.
func (b PropertyBag) Clone() PropertyBag {
	if b == nil {
		return PropertyBag{}
	}
	out := make(PropertyBag, len(b))
	for k, v := range b {
		out[k] = CloneValue(v)
	}
	return out
}

// Merge applies patch on top of b and returns the result as a new bag.
// Only top-level keys present in patch change; all other keys are kept.
// Neither b nor patch is modified.
func (b PropertyBag) Merge(patch PropertyBag) PropertyBag {
	out := b.Clone()
	for k, v := range patch {
		out[k] = CloneValue(v)
	}
	return out
}

// Equal reports whether two bags hold the same JSON-equivalent content.
func (b PropertyBag) Equal(other PropertyBag) bool {
	x, err := json.Marshal(b.Clone())
	if err != nil {
		return false
	}
	y, err := json.Marshal(other.Clone())
	if err != nil {
		return false
	}
	return string(x) == string(y)
}

// DecodePropertyBag parses a JSON object into a bag. Empty input yields an
// empty bag.
func DecodePropertyBag(data []byte) (PropertyBag, error) {
	if len(data) == 0 {
		return PropertyBag{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	if raw == nil {
		return PropertyBag{}, nil
	}
	return PropertyBag(raw), nil
}

// EncodePropertyBag serializes a bag as a JSON object.
func EncodePropertyBag(b PropertyBag) ([]byte, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}
	return data, nil
}

// CloneValue deep-copies the value kinds a property bag can hold. Numbers are
// normalized to float64 so bags built in Go compare equal to bags decoded
// from JSON.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = CloneValue(vv)
		}
		return out
	case PropertyBag:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = CloneValue(vv)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = vv
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = CloneValue(vv)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = vv
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = CloneValue(vv)
		}
		return out
	case map[any]any:
		// yaml.v2 style maps
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = CloneValue(vv)
		}
		return out
	default:
		if f, ok := ToFloat(v); ok {
			return f
		}
		return v
	}
}

// ToFloat converts any Go numeric kind (or json.Number) to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
