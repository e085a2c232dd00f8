package domain

// PageState is a page together with every element placed on it.
// It is the unit exchanged with the canvas when pages are synced in or out.
type PageState struct {
	Page     Page            `json:"page"`
	Elements []CanvasElement `json:"elements"`
}
