package schema

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"worksheet/internal/domain"
)

// MaxDepth bounds objectSchema nesting.
const MaxDepth = 6

var ErrInvalidCatalog = errors.New("invalid schema catalog")

type catalogFile struct {
	Components []catalogComponent `yaml:"components"`
}

type catalogComponent struct {
	Type                           string        `yaml:"type"`
	domain.ComponentPropertySchema `yaml:",inline"`
	QuickActions                   []QuickAction `yaml:"quickActions"`
}

// Load parses a YAML catalog and validates every schema in it.
func Load(data []byte) (*Registry, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	seen := make(map[string]bool, len(f.Components))
	entries := make([]Entry, 0, len(f.Components))
	for i := range f.Components {
		c := f.Components[i]
		if c.Type == "" {
			return nil, fmt.Errorf("%w: component %d has no type", ErrInvalidCatalog, i)
		}
		if seen[c.Type] {
			return nil, fmt.Errorf("%w: duplicate component type %q", ErrInvalidCatalog, c.Type)
		}
		seen[c.Type] = true

		s := c.ComponentPropertySchema
		s.Properties = normalizeDefaults(s.Properties)
		if err := ValidateSchema(&s); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, c.Type, err)
		}
		if err := validateQuickActions(c.QuickActions); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, c.Type, err)
		}
		entries = append(entries, Entry{Type: c.Type, Schema: &s, QuickActions: c.QuickActions})
	}
	return NewRegistry(entries...), nil
}

// ValidateSchema checks the structural invariants of a component schema.
func ValidateSchema(s *domain.ComponentPropertySchema) error {
	if s.ComponentName == "" {
		return errors.New("componentName is required")
	}
	return validateDefinitions(s.Properties, "", 0)
}

func validateDefinitions(defs []domain.PropertyDefinition, path string, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%s: nesting deeper than %d", path, MaxDepth)
	}
	keys := make(map[string]bool, len(defs))
	for _, d := range defs {
		p := joinPath(path, d.Key)
		if d.Key == "" {
			return fmt.Errorf("%s: empty key", path)
		}
		if keys[d.Key] {
			return fmt.Errorf("%s: duplicate key", p)
		}
		keys[d.Key] = true

		if !d.Type.Known() {
			return fmt.Errorf("%s: unknown type %q", p, d.Type)
		}
		if (d.Min != nil || d.Max != nil) && d.Type != domain.PropertyTypeNumber {
			return fmt.Errorf("%s: min/max only allowed on number", p)
		}
		if d.Min != nil && d.Max != nil && *d.Min > *d.Max {
			return fmt.Errorf("%s: min greater than max", p)
		}
		switch {
		case d.Type == domain.PropertyTypeSelect && len(d.Options) == 0:
			return fmt.Errorf("%s: select requires options", p)
		case d.Type != domain.PropertyTypeSelect && len(d.Options) > 0:
			return fmt.Errorf("%s: options only allowed on select", p)
		case d.Type.IsComposite() && len(d.ObjectSchema) == 0:
			return fmt.Errorf("%s: %s requires objectSchema", p, d.Type)
		case !d.Type.IsComposite() && len(d.ObjectSchema) > 0:
			return fmt.Errorf("%s: objectSchema only allowed on object and array-object", p)
		}
		if err := validateDefault(d, p); err != nil {
			return err
		}
		if d.Type.IsComposite() {
			if err := validateDefinitions(d.ObjectSchema, p, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateDefault(d domain.PropertyDefinition, p string) error {
	if d.Default == nil {
		return nil
	}
	switch d.Type {
	case domain.PropertyTypeNumber:
		f, ok := domain.ToFloat(d.Default)
		if !ok {
			return fmt.Errorf("%s: default is not a number", p)
		}
		if (d.Min != nil && f < *d.Min) || (d.Max != nil && f > *d.Max) {
			return fmt.Errorf("%s: default out of range", p)
		}
	case domain.PropertyTypeSelect:
		s, ok := d.Default.(string)
		if !ok || !d.HasOption(s) {
			return fmt.Errorf("%s: default is not one of the options", p)
		}
	case domain.PropertyTypeBoolean:
		if _, ok := d.Default.(bool); !ok {
			return fmt.Errorf("%s: default is not a boolean", p)
		}
	case domain.PropertyTypeString, domain.PropertyTypeColor, domain.PropertyTypeURL:
		if _, ok := d.Default.(string); !ok {
			return fmt.Errorf("%s: default is not a string", p)
		}
	case domain.PropertyTypeArraySimple, domain.PropertyTypeArrayObject:
		if _, ok := d.Default.([]any); !ok {
			return fmt.Errorf("%s: default is not a list", p)
		}
	case domain.PropertyTypeObject:
		if _, ok := d.Default.(map[string]any); !ok {
			return fmt.Errorf("%s: default is not an object", p)
		}
	}
	return nil
}

func validateQuickActions(actions []QuickAction) error {
	ids := make(map[string]bool, len(actions))
	for _, qa := range actions {
		if qa.ID == "" || qa.Instruction == "" {
			return errors.New("quick action needs id and instruction")
		}
		if ids[qa.ID] {
			return fmt.Errorf("duplicate quick action %q", qa.ID)
		}
		ids[qa.ID] = true
	}
	return nil
}

// normalizeDefaults rewrites YAML-decoded defaults (ints, nested maps) into
// the same shapes JSON decoding produces.
func normalizeDefaults(defs []domain.PropertyDefinition) []domain.PropertyDefinition {
	out := make([]domain.PropertyDefinition, len(defs))
	for i, d := range defs {
		if d.Default != nil {
			d.Default = domain.CloneValue(d.Default)
		}
		if len(d.ObjectSchema) > 0 {
			d.ObjectSchema = normalizeDefaults(d.ObjectSchema)
		}
		out[i] = d
	}
	return out
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
