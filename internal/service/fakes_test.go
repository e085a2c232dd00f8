package service_test

import (
	"errors"
	"sync"

	"worksheet/internal/domain"
)

// memStore is an in-memory PageStore + ElementStore.
type memStore struct {
	mu         sync.Mutex
	worksheets map[string]domain.Worksheet
	pages      map[string]domain.Page
	elements   map[string]domain.CanvasElement
	order      []string
	failWrites error
}

func newMemStore() *memStore {
	return &memStore{
		worksheets: map[string]domain.Worksheet{},
		pages:      map[string]domain.Page{},
		elements:   map[string]domain.CanvasElement{},
	}
}

func (m *memStore) CreateWorksheet(ws *domain.Worksheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worksheets[ws.ID] = *ws
	return nil
}

func (m *memStore) GetWorksheet(id string) (*domain.Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.worksheets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &ws, nil
}

func (m *memStore) ListWorksheets() ([]domain.Worksheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Worksheet
	for _, ws := range m.worksheets {
		out = append(out, ws)
	}
	return out, nil
}

func (m *memStore) CreatePage(p *domain.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *p
	c.Properties = p.Properties.Clone()
	m.pages[p.ID] = c
	return nil
}

func (m *memStore) GetPage(id string) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Properties = p.Properties.Clone()
	return &p, nil
}

func (m *memStore) ListPages(worksheetID string) ([]domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Page
	for _, p := range m.pages {
		if p.WorksheetID == worksheetID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePageProperties(id string, props domain.PropertyBag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	p, ok := m.pages[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Properties = props.Clone()
	m.pages[id] = p
	return nil
}

func (m *memStore) CreateElement(e *domain.CanvasElement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *e
	c.Properties = e.Properties.Clone()
	if _, exists := m.elements[e.ID]; !exists {
		m.order = append(m.order, e.ID)
	}
	m.elements[e.ID] = c
	return nil
}

func (m *memStore) GetElement(id string) (*domain.CanvasElement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.elements[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.Properties = e.Properties.Clone()
	return &e, nil
}

func (m *memStore) ListElements(pageID string) ([]domain.CanvasElement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CanvasElement
	for _, id := range m.order {
		if e, ok := m.elements[id]; ok && e.PageID == pageID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) UpdateElementProperties(id string, props domain.PropertyBag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	e, ok := m.elements[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Properties = props.Clone()
	m.elements[id] = e
	return nil
}

func (m *memStore) DeleteElementsByPage(pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.elements {
		if e.PageID == pageID {
			delete(m.elements, id)
		}
	}
	return nil
}

func (m *memStore) props(elementID string) domain.PropertyBag {
	e, err := m.GetElement(elementID)
	if err != nil {
		panic(errors.New("missing element " + elementID))
	}
	return e.Properties
}
