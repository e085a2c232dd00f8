package mcpserver

import (
	"context"
	"fmt"

	"worksheet/internal/selection"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSelectionTools() {
	// ── select_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select_page",
		mcp.WithDescription("Select a whole page as the edit target. Its background, orientation and margins become editable."),
		mcp.WithString("pageId",
			mcp.Description("ID of the page"),
			mcp.Required(),
		),
	), s.handleSelectPage)

	// ── select_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("select_element",
		mcp.WithDescription("Select one element on a page as the edit target"),
		mcp.WithString("pageId",
			mcp.Description("ID of the page holding the element"),
			mcp.Required(),
		),
		mcp.WithString("elementId",
			mcp.Description("ID of the element"),
			mcp.Required(),
		),
	), s.handleSelectElement)

	// ── clear_selection ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("clear_selection",
		mcp.WithDescription("Deselect everything. Drafts are kept for when the target is selected again."),
	), s.handleClearSelection)

	// ── get_properties ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_properties",
		mcp.WithDescription("Get the current properties and editable fields of the selected target"),
	), s.handleGetProperties)
}

func (s *Server) handleSelectPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	sel, err := s.session.Select(ctx, pageID, "")
	if err != nil {
		return errorResult(fmt.Errorf("select page: %w", err)), nil
	}
	return jsonResult(s.summarize(sel))
}

func (s *Server) handleSelectElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	elementID := req.GetString("elementId", "")
	if pageID == "" || elementID == "" {
		return nil, fmt.Errorf("pageId and elementId are required")
	}
	sel, err := s.session.Select(ctx, pageID, elementID)
	if err != nil {
		return errorResult(fmt.Errorf("select element: %w", err)), nil
	}
	return jsonResult(s.summarize(sel))
}

func (s *Server) handleClearSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.session.ClearSelection(ctx)
	return textResult("Selection cleared"), nil
}

func (s *Server) handleGetProperties(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := s.session.Target()
	if err != nil {
		return errorResult(err), nil
	}
	fields, cs, err := s.session.Fields()
	if err != nil {
		return errorResult(err), nil
	}
	out := map[string]any{
		"selection":  s.summarize(s.session.Selection()),
		"properties": target.Properties,
		"editable":   cs != nil,
	}
	if cs != nil {
		out["fields"] = fields
	}
	return jsonResult(out)
}

func (s *Server) summarize(sel selection.Selection) selectionSummary {
	out := selectionSummary{
		Key:           selection.Key(sel),
		Kind:          string(sel.Kind),
		ComponentType: sel.ComponentType(),
		Draft:         s.session.Draft(),
	}
	if sel.Page != nil {
		out.PageID = sel.Page.ID
	}
	if sel.Element != nil {
		out.ElementID = sel.Element.ID
	}
	return out
}
