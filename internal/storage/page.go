package storage

import (
	"database/sql"
	"fmt"
	"time"

	"worksheet/internal/domain"
)

// PageStore implements domain.PageStore.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

func (s *PageStore) CreateWorksheet(ws *domain.Worksheet) error {
	now := time.Now().UTC()
	ws.CreatedAt = now
	ws.UpdatedAt = now
	_, err := s.db.exec(
		`INSERT INTO worksheets (id, name, icon, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		ws.ID, ws.Name, ws.Icon, ws.CreatedAt, ws.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create worksheet: %w", err)
	}
	return nil
}

func (s *PageStore) GetWorksheet(id string) (*domain.Worksheet, error) {
	ws := &domain.Worksheet{}
	err := s.db.queryRow(
		`SELECT id, name, icon, created_at, updated_at FROM worksheets WHERE id = ?`, id,
	).Scan(&ws.ID, &ws.Name, &ws.Icon, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, notFound("get worksheet", err)
	}
	return ws, nil
}

func (s *PageStore) ListWorksheets() ([]domain.Worksheet, error) {
	rows, err := s.db.query(`SELECT id, name, icon, created_at, updated_at FROM worksheets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Worksheet
	for rows.Next() {
		var ws domain.Worksheet
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Icon, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────
// Pages
// ─────────────────────────────────────────────────────────────

const pageColumns = `id, worksheet_id, name, sort_order, properties_json, created_at, updated_at`

func (s *PageStore) CreatePage(p *domain.Page) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	props, err := domain.EncodePropertyBag(p.Properties)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	_, err = s.db.exec(
		`INSERT INTO pages (`+pageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.WorksheetID, p.Name, p.Order, string(props), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

func (s *PageStore) GetPage(id string) (*domain.Page, error) {
	p, err := scanPage(s.db.queryRow(`SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("get page", err)
	}
	return p, nil
}

func (s *PageStore) ListPages(worksheetID string) ([]domain.Page, error) {
	rows, err := s.db.query(
		`SELECT `+pageColumns+` FROM pages WHERE worksheet_id = ? ORDER BY sort_order ASC, created_at ASC`,
		worksheetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

func (s *PageStore) UpdatePageProperties(id string, props domain.PropertyBag) error {
	data, err := domain.EncodePropertyBag(props)
	if err != nil {
		return fmt.Errorf("update page properties: %w", err)
	}
	res, err := s.db.exec(
		`UPDATE pages SET properties_json = ?, updated_at = ? WHERE id = ?`,
		string(data), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update page properties: %w", err)
	}
	return requireRow(res, "update page properties")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (*domain.Page, error) {
	var (
		p     domain.Page
		props string
	)
	if err := row.Scan(&p.ID, &p.WorksheetID, &p.Name, &p.Order, &props, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	bag, err := domain.DecodePropertyBag([]byte(props))
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", p.ID, err)
	}
	p.Properties = bag
	return &p, nil
}

// requireRow reports domain.ErrNotFound when an UPDATE matched nothing.
func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
