package mcpserver

import (
	"context"
	"fmt"

	"worksheet/internal/schema"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSchemaTools() {
	// ── list_component_types ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_component_types",
		mcp.WithDescription("List the component types that have editable properties"),
	), s.handleListComponentTypes)

	// ── get_component_schema ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_component_schema",
		mcp.WithDescription("Get the property schema, quick actions and patch JSON Schema for a component type"),
		mcp.WithString("type",
			mcp.Description("Component type, e.g. tap-image or page"),
			mcp.Required(),
		),
	), s.handleGetComponentSchema)

	// ── list_worksheets ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_worksheets",
		mcp.WithDescription("List all worksheets"),
	), s.handleListWorksheets)

	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List the pages of a worksheet"),
		mcp.WithString("worksheetId",
			mcp.Description("ID of the worksheet"),
			mcp.Required(),
		),
	), s.handleListPages)
}

type componentSummary struct {
	Type          string `json:"type"`
	ComponentName string `json:"componentName"`
	Icon          string `json:"icon,omitempty"`
	Properties    int    `json:"properties"`
	QuickActions  int    `json:"quickActions"`
}

func (s *Server) handleListComponentTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg := s.session.Registry()
	types := reg.Types()
	out := make([]componentSummary, 0, len(types))
	for _, t := range types {
		e, _ := reg.Entry(t)
		out = append(out, componentSummary{
			Type:          t,
			ComponentName: e.Schema.ComponentName,
			Icon:          e.Schema.Icon,
			Properties:    len(e.Schema.Properties),
			QuickActions:  len(e.QuickActions),
		})
	}
	return jsonResult(out)
}

func (s *Server) handleGetComponentSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := req.GetString("type", "")
	if typ == "" {
		return nil, fmt.Errorf("type is required")
	}
	e, ok := s.session.Registry().Entry(typ)
	if !ok {
		return errorResult(fmt.Errorf("component type %q has no editable properties", typ)), nil
	}
	return jsonResult(map[string]any{
		"type":         typ,
		"schema":       e.Schema,
		"quickActions": e.QuickActions,
		"patchSchema":  schema.JSONSchema(e.Schema, false),
	})
}

func (s *Server) handleListWorksheets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	worksheets, err := s.session.Worksheets().ListWorksheets()
	if err != nil {
		return nil, fmt.Errorf("list worksheets: %w", err)
	}
	return jsonResult(worksheets)
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	worksheetID := req.GetString("worksheetId", "")
	if worksheetID == "" {
		return nil, fmt.Errorf("worksheetId is required")
	}
	pages, err := s.session.Worksheets().ListPages(worksheetID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return jsonResult(pages)
}
