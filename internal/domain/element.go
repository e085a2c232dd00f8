package domain

import "time"

// CanvasElement is a component placed on a worksheet page. The canvas owns
// its identity, type and geometry; the editing engine only rewrites
// Properties.
type CanvasElement struct {
	ID         string      `json:"id"`
	PageID     string      `json:"pageId"`
	Type       string      `json:"type"` // schema lookup key
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Properties PropertyBag `json:"properties"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Snapshot returns a copy of the element whose property bag shares no
// memory with the original.
func (e CanvasElement) Snapshot() CanvasElement {
	e.Properties = e.Properties.Clone()
	return e
}

type ElementStore interface {
	CreateElement(e *CanvasElement) error
	GetElement(id string) (*CanvasElement, error)
	ListElements(pageID string) ([]CanvasElement, error)
	UpdateElementProperties(id string, props PropertyBag) error
	DeleteElementsByPage(pageID string) error
}
