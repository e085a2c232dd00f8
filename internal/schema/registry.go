package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"worksheet/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Schema Registry — component type -> (schema, quick actions)
// ─────────────────────────────────────────────────────────────

//go:embed catalog.yaml
var builtinCatalog []byte

// QuickAction is a pre-canned instruction offered for a component type.
type QuickAction struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Instruction string `json:"instruction" yaml:"instruction"`
}

// Entry pairs a component schema with its handler data.
type Entry struct {
	Type         string
	Schema       *domain.ComponentPropertySchema
	QuickActions []QuickAction
}

// Registry is a closed, read-only map from component type to Entry.
// Entries never change after construction; only compiled validators are
// cached lazily.
type Registry struct {
	entries    map[string]Entry
	types      []string
	validators sync.Map // component type -> *Validator
}

// NewRegistry builds a registry from entries. Panics on duplicate types or
// nil schemas; registries are assembled from compiled-in tables.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Schema == nil {
			panic(fmt.Sprintf("schema registry: nil schema for component type %q", e.Type))
		}
		if _, exists := r.entries[e.Type]; exists {
			panic(fmt.Sprintf("schema registry: duplicate registration for component type %q", e.Type))
		}
		r.entries[e.Type] = e
		r.types = append(r.types, e.Type)
	}
	sort.Strings(r.types)
	return r
}

var (
	builtinOnce sync.Once
	builtin     *Registry
)

// Builtin returns the registry loaded from the embedded catalog.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		r, err := Load(builtinCatalog)
		if err != nil {
			panic(fmt.Sprintf("schema registry: builtin catalog: %v", err))
		}
		builtin = r
	})
	return builtin
}

// Get returns the schema for componentType, or nil when the type has no
// editable properties.
func (r *Registry) Get(componentType string) *domain.ComponentPropertySchema {
	e, ok := r.entries[componentType]
	if !ok {
		return nil
	}
	return e.Schema
}

// IsEditable reports whether componentType has a schema.
func (r *Registry) IsEditable(componentType string) bool {
	return r.Get(componentType) != nil
}

// Entry returns the full registry entry for componentType.
func (r *Registry) Entry(componentType string) (Entry, bool) {
	e, ok := r.entries[componentType]
	return e, ok
}

// Types lists the registered component types in sorted order.
func (r *Registry) Types() []string {
	return append([]string(nil), r.types...)
}

// QuickActions returns the quick actions for componentType.
func (r *Registry) QuickActions(componentType string) []QuickAction {
	e, ok := r.entries[componentType]
	if !ok {
		return nil
	}
	return append([]QuickAction(nil), e.QuickActions...)
}

// QuickAction looks up one quick action by id.
func (r *Registry) QuickAction(componentType, id string) (QuickAction, bool) {
	for _, qa := range r.entries[componentType].QuickActions {
		if qa.ID == id {
			return qa, true
		}
	}
	return QuickAction{}, false
}
