package editor

import (
	"fmt"
	"strconv"

	"worksheet/internal/domain"
)

// Op names one field-level edit.
type Op string

const (
	// OpSet replaces a scalar value wholesale.
	OpSet Op = "set"
	// OpAppend adds an item to the end of a list. array-simple gets an empty
	// string; array-object gets an item built from nested defaults.
	OpAppend Op = "append"
	// OpUpdateItem replaces one item of an array-simple list.
	OpUpdateItem Op = "update-item"
	// OpUpdateItemField sets one field of one array-object item.
	OpUpdateItemField Op = "update-item-field"
	// OpRemove deletes the item at Index; later items shift down.
	OpRemove Op = "remove"
	// OpSetField merges one field into an object value.
	OpSetField Op = "set-field"
)

// Edit is a single manual change to one top-level property.
type Edit struct {
	Op    Op     `json:"op"`
	Key   string `json:"key"`
	Index int    `json:"index,omitempty"`
	Field string `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Apply computes the patch produced by e against props. The patch holds
// exactly one top-level key; props is never modified. Every failure is
// returned as an error, including unexpected panics.
func Apply(s *domain.ComponentPropertySchema, props domain.PropertyBag, e Edit) (patch domain.PropertyBag, err error) {
	defer func() {
		if r := recover(); r != nil {
			patch = nil
			err = fmt.Errorf("%w: %s %s: %v", ErrInternal, e.Op, e.Key, r)
		}
	}()

	if s == nil {
		return nil, ErrNoSchema
	}
	def, ok := s.Definition(e.Key)
	if !ok {
		return nil, fieldErr(e.Key, ErrUnknownProperty, "not in %s schema", s.ComponentName)
	}

	var next any
	switch {
	case def.Type.IsScalar():
		next, err = applyScalar(def, e)
	case def.Type == domain.PropertyTypeArraySimple:
		next, err = applySimpleList(def, props, e)
	case def.Type == domain.PropertyTypeArrayObject:
		next, err = applyObjectList(def, props, e)
	case def.Type == domain.PropertyTypeObject:
		next, err = applyObject(def, props, e)
	default:
		err = fieldErr(e.Key, ErrUnsupportedType, "%q", def.Type)
	}
	if err != nil {
		return nil, err
	}
	return domain.PropertyBag{e.Key: next}, nil
}

// ApplyTo applies e and merges the resulting patch into a copy of props.
func ApplyTo(s *domain.ComponentPropertySchema, props domain.PropertyBag, e Edit) (domain.PropertyBag, error) {
	patch, err := Apply(s, props, e)
	if err != nil {
		return nil, err
	}
	return props.Merge(patch), nil
}

func applyScalar(def domain.PropertyDefinition, e Edit) (any, error) {
	if e.Op != OpSet {
		return nil, unsupportedOp(def, e)
	}
	return checkValue(def, def.Key, e.Value)
}

func applySimpleList(def domain.PropertyDefinition, props domain.PropertyBag, e Edit) (any, error) {
	list, err := currentList(def, props)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case OpAppend:
		return append(list, ""), nil
	case OpUpdateItem:
		if err := checkIndex(def.Key, e.Index, len(list)); err != nil {
			return nil, err
		}
		s, ok := e.Value.(string)
		if !ok {
			return nil, fieldErr(indexPath(def.Key, e.Index), ErrTypeMismatch, "want string, got %T", e.Value)
		}
		list[e.Index] = s
		return list, nil
	case OpRemove:
		return removeAt(def.Key, list, e.Index)
	}
	return nil, unsupportedOp(def, e)
}

func applyObjectList(def domain.PropertyDefinition, props domain.PropertyBag, e Edit) (any, error) {
	list, err := currentList(def, props)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case OpAppend:
		return append(list, newItem(def.ObjectSchema)), nil
	case OpUpdateItemField:
		if err := checkIndex(def.Key, e.Index, len(list)); err != nil {
			return nil, err
		}
		itemPath := indexPath(def.Key, e.Index)
		nested, ok := def.Nested(e.Field)
		if !ok {
			return nil, fieldErr(joinPath(itemPath, e.Field), ErrUnknownProperty, "not in item schema")
		}
		v, err := checkValue(nested, joinPath(itemPath, e.Field), e.Value)
		if err != nil {
			return nil, err
		}
		item, ok := toObject(list[e.Index])
		if !ok {
			return nil, fieldErr(itemPath, ErrTypeMismatch, "item is %T", list[e.Index])
		}
		item[e.Field] = v
		list[e.Index] = item
		return list, nil
	case OpRemove:
		return removeAt(def.Key, list, e.Index)
	}
	return nil, unsupportedOp(def, e)
}

func applyObject(def domain.PropertyDefinition, props domain.PropertyBag, e Edit) (any, error) {
	if e.Op != OpSetField {
		return nil, unsupportedOp(def, e)
	}
	nested, ok := def.Nested(e.Field)
	if !ok {
		return nil, fieldErr(joinPath(def.Key, e.Field), ErrUnknownProperty, "not in object schema")
	}
	v, err := checkValue(nested, joinPath(def.Key, e.Field), e.Value)
	if err != nil {
		return nil, err
	}
	cur := CurrentValue(def, props)
	if cur == nil {
		cur = ZeroValue(def)
	}
	obj, ok := toObject(cur)
	if !ok {
		return nil, fieldErr(def.Key, ErrTypeMismatch, "stored value is not an object")
	}
	obj[e.Field] = v
	return obj, nil
}

func currentList(def domain.PropertyDefinition, props domain.PropertyBag) ([]any, error) {
	list, ok := toList(CurrentValue(def, props))
	if !ok {
		return nil, fieldErr(def.Key, ErrTypeMismatch, "stored value is not a list")
	}
	return list, nil
}

func removeAt(key string, list []any, i int) ([]any, error) {
	if err := checkIndex(key, i, len(list)); err != nil {
		return nil, err
	}
	return append(list[:i:i], list[i+1:]...), nil
}

func checkIndex(key string, i, n int) error {
	if i < 0 || i >= n {
		return fieldErr(indexPath(key, i), ErrIndexOutOfRange, "list has %d items", n)
	}
	return nil
}

func unsupportedOp(def domain.PropertyDefinition, e Edit) error {
	return fieldErr(def.Key, ErrUnsupportedOp, "%q on %s", e.Op, def.Type)
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexPath(path string, i int) string {
	return path + "." + strconv.Itoa(i)
}
