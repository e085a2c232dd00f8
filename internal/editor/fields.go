package editor

import (
	"errors"

	"worksheet/internal/domain"
)

// Field is one renderable row: a definition with its current value.
// Object fields expose their nested rows in Children; array-object fields
// expose one row set per item in Items.
type Field struct {
	Definition  domain.PropertyDefinition `json:"definition"`
	Value       any                       `json:"value"`
	Children    []Field                   `json:"children,omitempty"`
	Items       [][]Field                 `json:"items,omitempty"`
	Unsupported bool                      `json:"unsupported,omitempty"`
}

// RenderableFields walks s and props together, in schema order. A nil
// schema yields no fields.
func RenderableFields(s *domain.ComponentPropertySchema, props domain.PropertyBag) []Field {
	if s == nil {
		return nil
	}
	return renderable(s.Properties, props)
}

func renderable(defs []domain.PropertyDefinition, values map[string]any) []Field {
	out := make([]Field, 0, len(defs))
	for _, d := range defs {
		f := Field{Definition: d, Value: CurrentValue(d, values)}
		switch d.Type {
		case domain.PropertyTypeObject:
			obj, _ := toObject(f.Value)
			f.Children = renderable(d.ObjectSchema, obj)
		case domain.PropertyTypeArrayObject:
			list, _ := toList(f.Value)
			f.Items = make([][]Field, 0, len(list))
			for _, item := range list {
				obj, _ := toObject(item)
				f.Items = append(f.Items, renderable(d.ObjectSchema, obj))
			}
		default:
			f.Unsupported = !d.Type.Known()
		}
		out = append(out, f)
	}
	return out
}

// Validate checks props against s: required keys must resolve to a value and
// present values must conform to their definitions. Keys the schema does not
// describe are ignored. All violations are joined into one error.
func Validate(s *domain.ComponentPropertySchema, props domain.PropertyBag) error {
	if s == nil {
		return ErrNoSchema
	}
	var errs []error
	for _, d := range s.Properties {
		v, present := props[d.Key]
		if !present || v == nil {
			if d.Required && d.Default == nil {
				errs = append(errs, fieldErr(d.Key, ErrMissingRequired, ""))
			}
			continue
		}
		if _, err := checkValue(d, d.Key, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidatePatch checks every patch key the schema describes and returns the
// patch with those values normalized. Unknown keys and null values pass
// through verbatim. All violations are joined into one error.
func ValidatePatch(s *domain.ComponentPropertySchema, patch domain.PropertyBag) (domain.PropertyBag, error) {
	if s == nil {
		return nil, ErrNoSchema
	}
	out := make(domain.PropertyBag, len(patch))
	var errs []error
	for k, v := range patch {
		out[k] = v
		def, ok := s.Definition(k)
		if !ok || v == nil {
			continue
		}
		checked, err := checkValue(def, k, v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[k] = checked
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
