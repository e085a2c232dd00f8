package app

import (
	"context"
	"errors"
	"fmt"

	"worksheet/internal/domain"
	"worksheet/internal/editor"
	"worksheet/internal/schema"
	"worksheet/internal/selection"
	"worksheet/internal/service"
)

// EventSelectionChanged fires after Select or ClearSelection.
const EventSelectionChanged = "selection:changed"

// ErrElementNotOnPage is returned when an element is selected with a page it
// does not belong to.
var ErrElementNotOnPage = errors.New("element does not belong to page")

// ─────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────

// Select makes a page (elementID empty) or one of its elements the edit
// target. The draft for the previous target is saved and the next one's
// restored.
func (a *App) Select(ctx context.Context, pageID, elementID string) (selection.Selection, error) {
	page, err := a.worksheets.GetPage(pageID)
	if err != nil {
		return selection.Selection{}, err
	}
	next := selection.ForPage(page)
	if elementID != "" {
		el, err := a.worksheets.GetElement(elementID)
		if err != nil {
			return selection.Selection{}, err
		}
		if el.PageID != page.ID {
			return selection.Selection{}, fmt.Errorf("%w: %s not on %s", ErrElementNotOnPage, el.ID, page.ID)
		}
		next = selection.ForElement(page, el)
	}
	a.setSelection(ctx, next)
	return next, nil
}

// ClearSelection deselects everything. Drafts are kept per key.
func (a *App) ClearSelection(ctx context.Context) {
	a.setSelection(ctx, selection.Selection{})
}

func (a *App) setSelection(ctx context.Context, next selection.Selection) {
	nextKey := selection.Key(next)

	a.mu.Lock()
	prev := selection.Key(a.sel)
	a.sel = next
	a.drafts.OnSelectionChange(prev, nextKey)
	a.mu.Unlock()

	if prev != nextKey {
		a.emitter.Emit(ctx, EventSelectionChanged, nextKey)
	}
}

// Selection returns the current selection.
func (a *App) Selection() selection.Selection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sel
}

// ─────────────────────────────────────────────────────────────
// Drafts
// ─────────────────────────────────────────────────────────────

// SetDraft stores instruction text for the current selection. Ignored when
// nothing is selected.
func (a *App) SetDraft(text string) {
	a.drafts.SetText(text)
}

func (a *App) Draft() string {
	return a.drafts.Text()
}

// ─────────────────────────────────────────────────────────────
// Editing
// ─────────────────────────────────────────────────────────────

// SetEditContext replaces the worksheet context sent with every edit.
func (a *App) SetEditContext(ectx domain.WorksheetEditContext) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.editCtx = ectx
}

func (a *App) EditContext() domain.WorksheetEditContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.editCtx
}

// SubmitEdit sends instruction, or the current draft when instruction is
// empty, for the current selection.
func (a *App) SubmitEdit(ctx context.Context, instruction string) (domain.WorksheetEdit, error) {
	if instruction == "" {
		instruction = a.drafts.Text()
	}
	return a.edits.Submit(ctx, a.Selection(), instruction, a.EditContext())
}

// RunQuickAction submits a catalog quick action for the current selection.
func (a *App) RunQuickAction(ctx context.Context, actionID string) (domain.WorksheetEdit, error) {
	return a.edits.SubmitQuickAction(ctx, a.Selection(), actionID, a.EditContext())
}

// QuickActions lists the actions offered for the current selection.
func (a *App) QuickActions() []schema.QuickAction {
	sel := a.Selection()
	if sel.IsEmpty() {
		return nil
	}
	return a.registry.QuickActions(sel.ComponentType())
}

// ApplyManualEdit applies one form edit to the current selection.
func (a *App) ApplyManualEdit(ctx context.Context, e editor.Edit) (domain.PropertyBag, error) {
	return a.props.ApplyManualEdit(ctx, a.Selection(), e)
}

// Fields returns the live renderable form for the current selection. A nil
// schema means the component has no editable properties.
func (a *App) Fields() ([]editor.Field, *domain.ComponentPropertySchema, error) {
	return a.props.Fields(a.Selection())
}

// Target resolves the current selection against storage.
func (a *App) Target() (service.Target, error) {
	return a.props.Resolve(a.Selection())
}

func (a *App) History() []domain.WorksheetEdit {
	return a.edits.History()
}

func (a *App) HistoryFor(selectionKey string) []domain.WorksheetEdit {
	return a.edits.HistoryFor(selectionKey)
}

func (a *App) State() service.EditState {
	return a.edits.State()
}

func (a *App) DismissError(ctx context.Context) {
	a.edits.DismissError(ctx)
}

// WaitIdle blocks until no edit is in flight or ctx ends.
func (a *App) WaitIdle(ctx context.Context) {
	a.edits.Wait(ctx)
}
