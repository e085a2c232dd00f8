package domain

import "time"

// PageComponentType is the schema key used when a whole page is the edit
// target.
const PageComponentType = "page"

type Worksheet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Page struct {
	ID          string      `json:"id"`
	WorksheetID string      `json:"worksheetId"`
	Name        string      `json:"name"`
	Order       int         `json:"order"`
	Properties  PropertyBag `json:"properties"` // background, orientation, margins
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type PageStore interface {
	CreateWorksheet(ws *Worksheet) error
	GetWorksheet(id string) (*Worksheet, error)
	ListWorksheets() ([]Worksheet, error)

	CreatePage(p *Page) error
	GetPage(id string) (*Page, error)
	ListPages(worksheetID string) ([]Page, error)
	UpdatePageProperties(id string, props PropertyBag) error
}
