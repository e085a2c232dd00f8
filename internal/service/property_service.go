package service

import (
	"context"
	"fmt"
	"sync"

	"worksheet/internal/domain"
	"worksheet/internal/editor"
	"worksheet/internal/logger"
	"worksheet/internal/schema"
	"worksheet/internal/selection"
)

// ─────────────────────────────────────────────────────────────
// Property Service — the single writer of property bags
// ─────────────────────────────────────────────────────────────

// Target is a resolved, by-value view of the selected page or element.
type Target struct {
	Key           string             `json:"key"`
	Kind          selection.Kind     `json:"kind"`
	ComponentType string             `json:"componentType"`
	PageID        string             `json:"pageId"`
	ElementID     string             `json:"elementId,omitempty"`
	Properties    domain.PropertyBag `json:"properties"`
}

// Element renders the target as a canvas element snapshot. A page target
// becomes an element of type "page".
func (t Target) Element() domain.CanvasElement {
	id := t.ElementID
	if t.Kind == selection.KindPage {
		id = t.PageID
	}
	return domain.CanvasElement{
		ID:         id,
		PageID:     t.PageID,
		Type:       t.ComponentType,
		Properties: t.Properties.Clone(),
	}
}

// PropertyService resolves selections against storage and owns every write
// to a property bag. Manual edits and gateway patches both end in Merge.
type PropertyService struct {
	mu       sync.Mutex
	pages    domain.PageStore
	elements domain.ElementStore
	registry *schema.Registry
	emitter  EventEmitter
	log      *logger.Logger
}

// NewPropertyService creates a PropertyService.
func NewPropertyService(
	pages domain.PageStore,
	elements domain.ElementStore,
	registry *schema.Registry,
	emitter EventEmitter,
	log *logger.Logger,
) *PropertyService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PropertyService{
		pages:    pages,
		elements: elements,
		registry: registry,
		emitter:  emitter,
		log:      log.With("component", "property_service"),
	}
}

// Registry exposes the schema registry the service validates against.
func (s *PropertyService) Registry() *schema.Registry { return s.registry }

// Resolve reads the live state of the selected target.
func (s *PropertyService) Resolve(sel selection.Selection) (Target, error) {
	key := selection.Key(sel)
	if key == "" {
		return Target{}, ErrNothingSelected
	}
	switch sel.Kind {
	case selection.KindPage:
		p, err := s.pages.GetPage(sel.Page.ID)
		if err != nil {
			return Target{}, fmt.Errorf("resolve page %s: %w", sel.Page.ID, err)
		}
		return Target{
			Key:           key,
			Kind:          selection.KindPage,
			ComponentType: domain.PageComponentType,
			PageID:        p.ID,
			Properties:    p.Properties.Clone(),
		}, nil
	default:
		e, err := s.elements.GetElement(sel.Element.ID)
		if err != nil {
			return Target{}, fmt.Errorf("resolve element %s: %w", sel.Element.ID, err)
		}
		return Target{
			Key:           key,
			Kind:          selection.KindElement,
			ComponentType: e.Type,
			PageID:        sel.Page.ID,
			ElementID:     e.ID,
			Properties:    e.Properties.Clone(),
		}, nil
	}
}

// Merge applies patch on top of the target's live properties and persists
// the result. Only keys present in patch change.
func (s *PropertyService) Merge(ctx context.Context, t Target, patch domain.PropertyBag) (domain.PropertyBag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeLocked(ctx, t, patch)
}

func (s *PropertyService) mergeLocked(ctx context.Context, t Target, patch domain.PropertyBag) (domain.PropertyBag, error) {
	live, err := s.liveProperties(t)
	if err != nil {
		return nil, err
	}
	merged := live.Merge(patch)

	switch t.Kind {
	case selection.KindPage:
		err = s.pages.UpdatePageProperties(t.PageID, merged)
	default:
		err = s.elements.UpdateElementProperties(t.ElementID, merged)
	}
	if err != nil {
		return nil, fmt.Errorf("save properties for %s: %w", t.Key, err)
	}

	s.emitter.Emit(ctx, EventPropertiesChanged, map[string]any{
		"key":        t.Key,
		"properties": merged.Clone(),
	})
	return merged, nil
}

func (s *PropertyService) liveProperties(t Target) (domain.PropertyBag, error) {
	switch t.Kind {
	case selection.KindPage:
		p, err := s.pages.GetPage(t.PageID)
		if err != nil {
			return nil, fmt.Errorf("reload page %s: %w", t.PageID, err)
		}
		return p.Properties, nil
	default:
		e, err := s.elements.GetElement(t.ElementID)
		if err != nil {
			return nil, fmt.Errorf("reload element %s: %w", t.ElementID, err)
		}
		return e.Properties, nil
	}
}

// ApplyManualEdit runs one field edit through the editor and merges its
// patch. Validation failures leave storage untouched.
func (s *PropertyService) ApplyManualEdit(ctx context.Context, sel selection.Selection, e editor.Edit) (domain.PropertyBag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.Resolve(sel)
	if err != nil {
		return nil, err
	}
	patch, err := editor.Apply(s.registry.Get(t.ComponentType), t.Properties, e)
	if err != nil {
		s.log.Debug("manual edit rejected", "selection", t.Key, "key", e.Key, "op", string(e.Op), "error", err)
		return nil, err
	}
	merged, err := s.mergeLocked(ctx, t, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info("manual edit applied", "selection", t.Key, "key", e.Key, "op", string(e.Op))
	return merged, nil
}

// Fields returns the renderable fields of the selection. A nil schema means
// the component has no editable properties; that is not an error.
func (s *PropertyService) Fields(sel selection.Selection) ([]editor.Field, *domain.ComponentPropertySchema, error) {
	t, err := s.Resolve(sel)
	if err != nil {
		return nil, nil, err
	}
	cs := s.registry.Get(t.ComponentType)
	return editor.RenderableFields(cs, t.Properties), cs, nil
}
