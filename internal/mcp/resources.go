package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"worksheet/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	schemasURI          = "worksheet://schemas"
	pageElementsURIBase = "worksheet://page/"
)

func (s *Server) registerResources() {
	// ── worksheet://schemas ────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		schemasURI,
		"Component Property Schemas",
		mcp.WithResourceDescription("Every editable component type with its property definitions"),
		mcp.WithMIMEType("application/json"),
	), s.handleSchemasResource)

	// ── worksheet://page/{pageId}/elements ─────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"worksheet://page/{pageId}/elements",
			"Elements on a Page",
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handlePageElementsResource,
	)
}

func (s *Server) handleSchemasResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	reg := s.session.Registry()
	out := make(map[string]*domain.ComponentPropertySchema, len(reg.Types()))
	for _, t := range reg.Types() {
		out[t] = reg.Get(t)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemasURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// elementSummary keeps geometry out of the agent's view.
type elementSummary struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Editable   bool               `json:"editable"`
	Properties domain.PropertyBag `json:"properties"`
}

func (s *Server) handlePageElementsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := extractPageIDFromURI(uri)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	st, err := s.session.Worksheets().GetPageState(pageID)
	if err != nil {
		return nil, err
	}
	reg := s.session.Registry()
	summaries := make([]elementSummary, len(st.Elements))
	for i, e := range st.Elements {
		summaries[i] = elementSummary{
			ID:         e.ID,
			Type:       e.Type,
			Editable:   reg.IsEditable(e.Type),
			Properties: e.Properties,
		}
	}

	data, err := json.MarshalIndent(map[string]any{
		"page":     st.Page,
		"elements": summaries,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// extractPageIDFromURI parses worksheet://page/{pageId}/elements.
func extractPageIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, pageElementsURIBase)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/elements")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
