// Package selection models the current edit target and its identity key.
package selection

import "worksheet/internal/domain"

type Kind string

const (
	KindNone    Kind = ""
	KindPage    Kind = "page"
	KindElement Kind = "element"
)

// Selection is either a page or an element within a page. The zero value
// means nothing is selected.
type Selection struct {
	Kind    Kind
	Page    *domain.Page
	Element *domain.CanvasElement
}

func ForPage(p *domain.Page) Selection {
	if p == nil {
		return Selection{}
	}
	return Selection{Kind: KindPage, Page: p}
}

func ForElement(p *domain.Page, e *domain.CanvasElement) Selection {
	if p == nil || e == nil {
		return Selection{}
	}
	return Selection{Kind: KindElement, Page: p, Element: e}
}

// Key derives the stable identity of sel: "page-<pageId>" or
// "element-<pageId>-<elementId>". An empty key means nothing is selected.
func Key(sel Selection) string {
	switch sel.Kind {
	case KindPage:
		if sel.Page == nil {
			return ""
		}
		return "page-" + sel.Page.ID
	case KindElement:
		if sel.Page == nil || sel.Element == nil {
			return ""
		}
		return "element-" + sel.Page.ID + "-" + sel.Element.ID
	}
	return ""
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool { return Key(s) == "" }

// ComponentType is the schema lookup key of the target.
func (s Selection) ComponentType() string {
	switch s.Kind {
	case KindPage:
		return domain.PageComponentType
	case KindElement:
		if s.Element != nil {
			return s.Element.Type
		}
	}
	return ""
}
