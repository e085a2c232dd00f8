package domain

// PropertyType is the closed set of shapes a component property can take.
type PropertyType string

const (
	PropertyTypeString      PropertyType = "string"
	PropertyTypeNumber      PropertyType = "number"
	PropertyTypeBoolean     PropertyType = "boolean"
	PropertyTypeColor       PropertyType = "color"
	PropertyTypeSelect      PropertyType = "select"
	PropertyTypeURL         PropertyType = "url"
	PropertyTypeArraySimple PropertyType = "array-simple"
	PropertyTypeArrayObject PropertyType = "array-object"
	PropertyTypeObject      PropertyType = "object"
)

// IsScalar reports whether values of this type are replaced wholesale.
func (t PropertyType) IsScalar() bool {
	switch t {
	case PropertyTypeString, PropertyTypeNumber, PropertyTypeBoolean,
		PropertyTypeColor, PropertyTypeSelect, PropertyTypeURL:
		return true
	}
	return false
}

// IsComposite reports whether the type nests an ObjectSchema.
func (t PropertyType) IsComposite() bool {
	return t == PropertyTypeObject || t == PropertyTypeArrayObject
}

// Known reports whether t belongs to the closed tag set.
func (t PropertyType) Known() bool {
	return t.IsScalar() || t.IsComposite() || t == PropertyTypeArraySimple
}

// SelectOption is one choice of a select property.
type SelectOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// PropertyDefinition describes one configurable field of a component.
type PropertyDefinition struct {
	Key      string       `json:"key" yaml:"key"`
	Label    string       `json:"label" yaml:"label"`
	Type     PropertyType `json:"type" yaml:"type"`
	Required bool         `json:"required,omitempty" yaml:"required,omitempty"`
	Default  any          `json:"default,omitempty" yaml:"default,omitempty"`

	// Min and Max only apply to number properties.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	// Options only apply to select properties.
	Options []SelectOption `json:"options,omitempty" yaml:"options,omitempty"`

	// ObjectSchema only applies to object and array-object properties.
	ObjectSchema []PropertyDefinition `json:"objectSchema,omitempty" yaml:"objectSchema,omitempty"`

	HelperText  string `json:"helperText,omitempty" yaml:"helperText,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// HasOption reports whether v is one of the declared select values.
func (d PropertyDefinition) HasOption(v string) bool {
	for _, o := range d.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Nested returns the nested definition with the given key.
func (d PropertyDefinition) Nested(key string) (PropertyDefinition, bool) {
	return findDefinition(d.ObjectSchema, key)
}

// ComponentPropertySchema is the ordered configurable surface of one
// component type.
type ComponentPropertySchema struct {
	ComponentName string               `json:"componentName" yaml:"componentName"`
	Icon          string               `json:"icon,omitempty" yaml:"icon,omitempty"`
	Properties    []PropertyDefinition `json:"properties" yaml:"properties"`
}

// Definition returns the top-level definition with the given key.
func (s *ComponentPropertySchema) Definition(key string) (PropertyDefinition, bool) {
	if s == nil {
		return PropertyDefinition{}, false
	}
	return findDefinition(s.Properties, key)
}

// Keys returns the top-level property keys in declaration order.
func (s *ComponentPropertySchema) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, len(s.Properties))
	for i, d := range s.Properties {
		keys[i] = d.Key
	}
	return keys
}

func findDefinition(defs []PropertyDefinition, key string) (PropertyDefinition, bool) {
	for _, d := range defs {
		if d.Key == key {
			return d, true
		}
	}
	return PropertyDefinition{}, false
}
