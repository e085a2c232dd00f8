package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("refine_element",
		mcp.WithPromptDescription("Guide through a schema-aware edit of one worksheet element or page"),
		mcp.WithArgument("pageId",
			mcp.ArgumentDescription("ID of the page"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("elementId",
			mcp.ArgumentDescription("ID of the element; omit to edit the page itself"),
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What should change, e.g. \"make the picture bigger\""),
			mcp.RequiredArgument(),
		),
	), s.handleRefineElementPrompt)
}

func (s *Server) handleRefineElementPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	pageID := req.Params.Arguments["pageId"]
	elementID := req.Params.Arguments["elementId"]
	goal := req.Params.Arguments["goal"]

	selectStep := fmt.Sprintf("Call select_page with pageId %q.", pageID)
	if elementID != "" {
		selectStep = fmt.Sprintf("Call select_element with pageId %q and elementId %q.", pageID, elementID)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Refine worksheet content: %s", goal),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Edit a worksheet component so that: %s

Steps:
1. %s
2. Call get_properties to read the current values and the editable fields.
3. If the change maps to a single field, call apply_manual_edit. Values are
   checked against the schema: numbers must stay within their bounds and
   select values must be one of the listed options.
4. Otherwise call list_quick_actions and run_quick_action if one fits, or
   submit_edit with a short instruction.
5. Call get_edit_state. If it reports an error, explain it, call
   dismiss_error, and decide whether to retry with a clearer instruction.
6. Summarize what changed using list_edit_history.

Only change what the goal asks for. Other properties must keep their values.`, goal, selectStep),
				},
			},
		},
	}, nil
}
