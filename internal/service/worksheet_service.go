package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"worksheet/internal/domain"
	"worksheet/internal/logger"
)

// ─────────────────────────────────────────────────────────────
// Worksheet Service — worksheets, pages and their elements
// ─────────────────────────────────────────────────────────────

// WorksheetService is the read side of the canvas plus the import path an
// external canvas uses to sync its pages in. It never edits properties of
// existing targets; that belongs to PropertyService.
type WorksheetService struct {
	pages    domain.PageStore
	elements domain.ElementStore
	emitter  EventEmitter
	log      *logger.Logger
}

// NewWorksheetService creates a WorksheetService.
func NewWorksheetService(pages domain.PageStore, elements domain.ElementStore, emitter EventEmitter, log *logger.Logger) *WorksheetService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WorksheetService{pages: pages, elements: elements, emitter: emitter, log: log.With("component", "worksheet_service")}
}

// ── Worksheets ─────────────────────────────────────────────

func (s *WorksheetService) ListWorksheets() ([]domain.Worksheet, error) {
	return s.pages.ListWorksheets()
}

func (s *WorksheetService) CreateWorksheet(name string) (*domain.Worksheet, error) {
	ws := &domain.Worksheet{ID: uuid.New().String(), Name: name, Icon: "📄"}
	if err := s.pages.CreateWorksheet(ws); err != nil {
		return nil, fmt.Errorf("create worksheet: %w", err)
	}
	return ws, nil
}

// ── Pages ──────────────────────────────────────────────────

func (s *WorksheetService) ListPages(worksheetID string) ([]domain.Page, error) {
	return s.pages.ListPages(worksheetID)
}

func (s *WorksheetService) GetPage(id string) (*domain.Page, error) {
	return s.pages.GetPage(id)
}

func (s *WorksheetService) CreatePage(worksheetID, name string) (*domain.Page, error) {
	existing, err := s.pages.ListPages(worksheetID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	p := &domain.Page{
		ID:          uuid.New().String(),
		WorksheetID: worksheetID,
		Name:        name,
		Order:       len(existing),
		Properties:  domain.PropertyBag{},
	}
	if err := s.pages.CreatePage(p); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return p, nil
}

// ── Elements ───────────────────────────────────────────────

func (s *WorksheetService) GetElement(id string) (*domain.CanvasElement, error) {
	return s.elements.GetElement(id)
}

func (s *WorksheetService) ListElements(pageID string) ([]domain.CanvasElement, error) {
	return s.elements.ListElements(pageID)
}

// GetPageState returns a page with all of its elements.
func (s *WorksheetService) GetPageState(pageID string) (*domain.PageState, error) {
	p, err := s.pages.GetPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	els, err := s.elements.ListElements(pageID)
	if err != nil {
		return nil, fmt.Errorf("list elements: %w", err)
	}
	if els == nil {
		els = []domain.CanvasElement{}
	}
	return &domain.PageState{Page: *p, Elements: els}, nil
}

// ImportPageState writes a page and its elements as the canvas sees them.
// An existing page keeps its id; its properties and element set are
// replaced. Missing ids are generated. The worksheet is created when absent.
func (s *WorksheetService) ImportPageState(ctx context.Context, st domain.PageState) (*domain.PageState, error) {
	page := st.Page
	if page.WorksheetID == "" {
		return nil, errors.New("import page: worksheetId is required")
	}
	if page.ID == "" {
		page.ID = uuid.New().String()
	}
	if page.Properties == nil {
		page.Properties = domain.PropertyBag{}
	}

	if _, err := s.pages.GetWorksheet(page.WorksheetID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("import page: %w", err)
		}
		ws := &domain.Worksheet{ID: page.WorksheetID, Name: page.WorksheetID, Icon: "📄"}
		if err := s.pages.CreateWorksheet(ws); err != nil {
			return nil, fmt.Errorf("import page: create worksheet: %w", err)
		}
	}

	_, err := s.pages.GetPage(page.ID)
	switch {
	case err == nil:
		if err := s.pages.UpdatePageProperties(page.ID, page.Properties); err != nil {
			return nil, fmt.Errorf("import page: %w", err)
		}
		if err := s.elements.DeleteElementsByPage(page.ID); err != nil {
			return nil, fmt.Errorf("import page: clear elements: %w", err)
		}
	case errors.Is(err, domain.ErrNotFound):
		if err := s.pages.CreatePage(&page); err != nil {
			return nil, fmt.Errorf("import page: %w", err)
		}
	default:
		return nil, fmt.Errorf("import page: %w", err)
	}

	for i := range st.Elements {
		e := st.Elements[i]
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.PageID = page.ID
		if e.Properties == nil {
			e.Properties = domain.PropertyBag{}
		}
		if err := s.elements.CreateElement(&e); err != nil {
			return nil, fmt.Errorf("import element %s: %w", e.ID, err)
		}
	}

	out, err := s.GetPageState(page.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("page imported", "page_id", page.ID, "elements", len(out.Elements))
	s.emitter.Emit(ctx, EventPageImported, out)
	return out, nil
}
