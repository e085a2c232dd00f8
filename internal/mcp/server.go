package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"worksheet/internal/domain"
	"worksheet/internal/editor"
	"worksheet/internal/logger"
	"worksheet/internal/schema"
	"worksheet/internal/selection"
	"worksheet/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Session is the editing session the tools drive.
type Session interface {
	Registry() *schema.Registry
	Worksheets() *service.WorksheetService

	Select(ctx context.Context, pageID, elementID string) (selection.Selection, error)
	ClearSelection(ctx context.Context)
	Selection() selection.Selection
	Target() (service.Target, error)

	SetDraft(text string)
	Draft() string

	SubmitEdit(ctx context.Context, instruction string) (domain.WorksheetEdit, error)
	RunQuickAction(ctx context.Context, actionID string) (domain.WorksheetEdit, error)
	QuickActions() []schema.QuickAction
	ApplyManualEdit(ctx context.Context, e editor.Edit) (domain.PropertyBag, error)
	Fields() ([]editor.Field, *domain.ComponentPropertySchema, error)

	History() []domain.WorksheetEdit
	HistoryFor(selectionKey string) []domain.WorksheetEdit
	State() service.EditState
	DismissError(ctx context.Context)
}

// Server is the MCP server for the worksheet editor.
// It exposes tools, resources, and prompts so AI agents can inspect
// component schemas and edit worksheet properties.
type Server struct {
	mcp     *server.MCPServer
	session Session
	log     *logger.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(session Session, version string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		session: session,
		log:     log.With("component", "mcp"),
	}

	s.mcp = server.NewMCPServer(
		"worksheet-editor",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerSchemaTools()
	s.registerSelectionTools()
	s.registerEditTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// MCP exposes the underlying server, e.g. for an HTTP transport.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports a rejected call to the agent without failing the
// protocol exchange.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
