package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"worksheet/internal/domain"
)

const draft2020 = "https://json-schema.org/draft/2020-12/schema"

// ErrPatchRejected is returned when a patch does not conform to its
// component schema.
var ErrPatchRejected = errors.New("patch rejected by schema")

// JSONSchema renders a component schema as a JSON Schema document describing
// a partial property patch. With strict set, keys outside the schema are
// disallowed at every level.
func JSONSchema(s *domain.ComponentPropertySchema, strict bool) map[string]any {
	doc := objectSchema(s.Properties, strict)
	doc["$schema"] = draft2020
	doc["title"] = s.ComponentName
	return doc
}

func objectSchema(defs []domain.PropertyDefinition, strict bool) map[string]any {
	props := make(map[string]any, len(defs))
	for _, d := range defs {
		props[d.Key] = definitionSchema(d, strict)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": !strict,
	}
}

func definitionSchema(d domain.PropertyDefinition, strict bool) map[string]any {
	var out map[string]any
	switch d.Type {
	case domain.PropertyTypeNumber:
		out = map[string]any{"type": "number"}
		if d.Min != nil {
			out["minimum"] = *d.Min
		}
		if d.Max != nil {
			out["maximum"] = *d.Max
		}
	case domain.PropertyTypeBoolean:
		out = map[string]any{"type": "boolean"}
	case domain.PropertyTypeSelect:
		enum := make([]any, len(d.Options))
		for i, o := range d.Options {
			enum[i] = o.Value
		}
		out = map[string]any{"type": "string", "enum": enum}
	case domain.PropertyTypeArraySimple:
		out = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	case domain.PropertyTypeArrayObject:
		out = map[string]any{"type": "array", "items": objectSchema(d.ObjectSchema, strict)}
	case domain.PropertyTypeObject:
		out = objectSchema(d.ObjectSchema, strict)
	default: // string, color, url
		out = map[string]any{"type": "string"}
	}
	if d.Label != "" {
		out["title"] = d.Label
	}
	if d.HelperText != "" {
		out["description"] = d.HelperText
	}
	return out
}

// Validator checks patches for one component type.
type Validator struct {
	componentType string
	compiled      *jsonschema.Schema
}

// NewValidator compiles the strict patch schema for s.
func NewValidator(componentType string, s *domain.ComponentPropertySchema) (*Validator, error) {
	raw, err := json.Marshal(JSONSchema(s, true))
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", componentType, err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://worksheet.schemas.local/patch/%s.schema.json", componentType)
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("patch schema load failed: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("patch schema compile failed: %w", err)
	}
	return &Validator{componentType: componentType, compiled: compiled}, nil
}

// Validate reports whether patch only uses known keys with conforming values.
func (v *Validator) Validate(patch domain.PropertyBag) error {
	if err := v.compiled.Validate(map[string]any(patch.Clone())); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPatchRejected, v.componentType, err)
	}
	return nil
}

// PatchValidator returns the compiled strict validator for componentType.
// Validators are compiled on first use and cached.
func (r *Registry) PatchValidator(componentType string) (*Validator, error) {
	if cached, ok := r.validators.Load(componentType); ok {
		return cached.(*Validator), nil
	}
	s := r.Get(componentType)
	if s == nil {
		return nil, fmt.Errorf("no schema for component type %q", componentType)
	}
	v, err := NewValidator(componentType, s)
	if err != nil {
		return nil, err
	}
	actual, _ := r.validators.LoadOrStore(componentType, v)
	return actual.(*Validator), nil
}
