package editor

import (
	"encoding/json"
	"math"
	"net/url"
	"strings"

	"worksheet/internal/domain"
)

// CurrentValue is properties[key], falling back to the definition's default
// when the key is absent or null. The result is a copy.
func CurrentValue(def domain.PropertyDefinition, props domain.PropertyBag) any {
	if v, ok := props[def.Key]; ok && v != nil {
		return domain.CloneValue(v)
	}
	return domain.CloneValue(def.Default)
}

// ZeroValue is the value a freshly added field starts with: the default when
// one is declared, otherwise the empty value of its type.
func ZeroValue(def domain.PropertyDefinition) any {
	if def.Default != nil {
		return domain.CloneValue(def.Default)
	}
	switch def.Type {
	case domain.PropertyTypeNumber:
		if def.Min != nil {
			return *def.Min
		}
		return 0.0
	case domain.PropertyTypeBoolean:
		return false
	case domain.PropertyTypeSelect:
		if len(def.Options) > 0 {
			return def.Options[0].Value
		}
		return ""
	case domain.PropertyTypeArraySimple, domain.PropertyTypeArrayObject:
		return []any{}
	case domain.PropertyTypeObject:
		return newItem(def.ObjectSchema)
	default:
		return ""
	}
}

// newItem builds an object whose fields hold each nested definition's
// zero value.
func newItem(defs []domain.PropertyDefinition) map[string]any {
	item := make(map[string]any, len(defs))
	for _, d := range defs {
		item[d.Key] = ZeroValue(d)
	}
	return item
}

// checkValue validates v against def and returns it in normalized form.
// Composite values are checked recursively.
func checkValue(def domain.PropertyDefinition, path string, v any) (any, error) {
	switch def.Type {
	case domain.PropertyTypeString, domain.PropertyTypeColor:
		s, ok := v.(string)
		if !ok {
			return nil, fieldErr(path, ErrTypeMismatch, "want string, got %T", v)
		}
		return s, nil

	case domain.PropertyTypeURL:
		s, ok := v.(string)
		if !ok {
			return nil, fieldErr(path, ErrTypeMismatch, "want url string, got %T", v)
		}
		if s != "" {
			if _, err := url.Parse(s); err != nil {
				return nil, fieldErr(path, ErrTypeMismatch, "invalid url %q", s)
			}
		}
		return s, nil

	case domain.PropertyTypeNumber:
		f, ok := domain.ToFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fieldErr(path, ErrTypeMismatch, "want number, got %T", v)
		}
		if def.Min != nil && f < *def.Min {
			return nil, fieldErr(path, ErrOutOfRange, "%v is below minimum %v", f, *def.Min)
		}
		if def.Max != nil && f > *def.Max {
			return nil, fieldErr(path, ErrOutOfRange, "%v is above maximum %v", f, *def.Max)
		}
		return f, nil

	case domain.PropertyTypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fieldErr(path, ErrTypeMismatch, "want boolean, got %T", v)
		}
		return b, nil

	case domain.PropertyTypeSelect:
		s, ok := v.(string)
		if !ok {
			return nil, fieldErr(path, ErrTypeMismatch, "want option value, got %T", v)
		}
		if !def.HasOption(s) {
			return nil, fieldErr(path, ErrInvalidOption, "%q", s)
		}
		return s, nil

	case domain.PropertyTypeArraySimple:
		list, ok := toList(v)
		if !ok {
			return nil, fieldErr(path, ErrTypeMismatch, "want list of strings, got %T", v)
		}
		out := make([]any, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fieldErr(indexPath(path, i), ErrTypeMismatch, "want string, got %T", item)
			}
			out[i] = s
		}
		return out, nil

	case domain.PropertyTypeArrayObject:
		list, ok := toList(v)
		if !ok {
			return nil, fieldErr(path, ErrTypeMismatch, "want list of objects, got %T", v)
		}
		out := make([]any, len(list))
		for i, item := range list {
			obj, err := checkObject(def.ObjectSchema, indexPath(path, i), item)
			if err != nil {
				return nil, err
			}
			out[i] = obj
		}
		return out, nil

	case domain.PropertyTypeObject:
		return checkObject(def.ObjectSchema, path, v)

	default:
		return nil, fieldErr(path, ErrUnsupportedType, "%q", def.Type)
	}
}

// checkObject validates known fields of an object value. Fields the nested
// schema does not describe are kept verbatim.
func checkObject(defs []domain.PropertyDefinition, path string, v any) (map[string]any, error) {
	obj, ok := toObject(v)
	if !ok {
		return nil, fieldErr(path, ErrTypeMismatch, "want object, got %T", v)
	}
	out := make(map[string]any, len(obj))
	for k, fv := range obj {
		out[k] = fv
	}
	for _, d := range defs {
		fv, present := obj[d.Key]
		if !present || fv == nil {
			continue
		}
		checked, err := checkValue(d, joinPath(path, d.Key), fv)
		if err != nil {
			return nil, err
		}
		out[d.Key] = checked
	}
	return out, nil
}

func toList(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return []any{}, true
	case []any:
		return domain.CloneValue(t).([]any), true
	case []string, []map[string]any:
		return domain.CloneValue(t).([]any), true
	}
	return nil, false
}

func toObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case nil:
		return map[string]any{}, true
	case map[string]any, domain.PropertyBag, map[string]string:
		return domain.CloneValue(t).(map[string]any), true
	}
	return nil, false
}

// ParseValue turns text typed for e into a value of the target field's type.
// String-like fields take raw verbatim, so "2024" or "" stay strings.
// Numbers, booleans, lists and objects are decoded as JSON; text that is not
// valid JSON is returned as is and rejected when the edit is applied.
func ParseValue(s *domain.ComponentPropertySchema, e Edit, raw string) any {
	def, ok := s.Definition(e.Key)
	if !ok {
		return decodeText(raw)
	}
	switch {
	case e.Field != "":
		nested, ok := def.Nested(e.Field)
		if !ok {
			return decodeText(raw)
		}
		def = nested
	case def.Type == domain.PropertyTypeArraySimple && e.Op == OpUpdateItem:
		return raw
	}

	switch def.Type {
	case domain.PropertyTypeString, domain.PropertyTypeColor, domain.PropertyTypeURL, domain.PropertyTypeSelect:
		return raw
	default:
		return decodeText(raw)
	}
}

func decodeText(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return raw
	}
	return v
}
