package storage

import (
	"fmt"
	"time"

	"worksheet/internal/domain"
)

// ElementStore implements domain.ElementStore.
type ElementStore struct {
	db *DB
}

func NewElementStore(db *DB) *ElementStore {
	return &ElementStore{db: db}
}

const elementColumns = `id, page_id, type, x, y, width, height, properties_json, created_at, updated_at`

func (s *ElementStore) CreateElement(e *domain.CanvasElement) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	props, err := domain.EncodePropertyBag(e.Properties)
	if err != nil {
		return fmt.Errorf("create element: %w", err)
	}
	_, err = s.db.exec(
		`INSERT INTO elements (`+elementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PageID, e.Type, e.X, e.Y, e.Width, e.Height, string(props), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create element: %w", err)
	}
	return nil
}

func (s *ElementStore) GetElement(id string) (*domain.CanvasElement, error) {
	e, err := scanElement(s.db.queryRow(`SELECT `+elementColumns+` FROM elements WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("get element", err)
	}
	return e, nil
}

// ListElements returns a page's elements in insertion order.
func (s *ElementStore) ListElements(pageID string) ([]domain.CanvasElement, error) {
	rows, err := s.db.query(
		`SELECT `+elementColumns+` FROM elements WHERE page_id = ? ORDER BY seq ASC`,
		pageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var elements []domain.CanvasElement
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		elements = append(elements, *e)
	}
	return elements, rows.Err()
}

// UpdateElementProperties replaces the stored bag. Geometry and type are
// untouched.
func (s *ElementStore) UpdateElementProperties(id string, props domain.PropertyBag) error {
	data, err := domain.EncodePropertyBag(props)
	if err != nil {
		return fmt.Errorf("update element properties: %w", err)
	}
	res, err := s.db.exec(
		`UPDATE elements SET properties_json = ?, updated_at = ? WHERE id = ?`,
		string(data), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update element properties: %w", err)
	}
	return requireRow(res, "update element properties")
}

func (s *ElementStore) DeleteElementsByPage(pageID string) error {
	_, err := s.db.exec(`DELETE FROM elements WHERE page_id = ?`, pageID)
	return err
}

func scanElement(row rowScanner) (*domain.CanvasElement, error) {
	var (
		e     domain.CanvasElement
		props string
	)
	if err := row.Scan(&e.ID, &e.PageID, &e.Type, &e.X, &e.Y, &e.Width, &e.Height, &props, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	bag, err := domain.DecodePropertyBag([]byte(props))
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", e.ID, err)
	}
	e.Properties = bag
	return &e, nil
}
