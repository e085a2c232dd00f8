package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"worksheet/internal/domain"
	"worksheet/internal/editor"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerEditTools() {
	// ── apply_manual_edit ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("apply_manual_edit",
		mcp.WithDescription("Apply one schema-checked edit to the selected target, as the property form would. "+
			"Ops: set, append, update-item, update-item-field, remove, set-field."),
		mcp.WithString("op",
			mcp.Description("Edit operation"),
			mcp.Required(),
			mcp.Enum(string(editor.OpSet), string(editor.OpAppend), string(editor.OpUpdateItem),
				string(editor.OpUpdateItemField), string(editor.OpRemove), string(editor.OpSetField)),
		),
		mcp.WithString("key",
			mcp.Description("Top-level property key"),
			mcp.Required(),
		),
		mcp.WithNumber("index",
			mcp.Description("List index for update-item, update-item-field and remove"),
		),
		mcp.WithString("field",
			mcp.Description("Nested field for update-item-field and set-field"),
		),
		mcp.WithString("value",
			mcp.Description("New value. Text fields take it verbatim (an empty value clears them); numbers, booleans, lists and objects are JSON (e.g. 12, true, {\"text\":\"cat\"})"),
		),
	), s.handleApplyManualEdit)

	// ── set_draft ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_draft",
		mcp.WithDescription("Set the unsent instruction text for the selected target"),
		mcp.WithString("text",
			mcp.Description("Draft instruction"),
			mcp.Required(),
		),
	), s.handleSetDraft)

	// ── submit_edit ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("submit_edit",
		mcp.WithDescription("Send a natural-language instruction for the selected target to the edit gateway. "+
			"Uses the current draft when instruction is omitted. Returns the history record."),
		mcp.WithString("instruction",
			mcp.Description("Instruction, e.g. \"make it bigger\""),
		),
	), s.handleSubmitEdit)

	// ── list_quick_actions ─────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_quick_actions",
		mcp.WithDescription("List the quick actions offered for the selected target"),
	), s.handleListQuickActions)

	// ── run_quick_action ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("run_quick_action",
		mcp.WithDescription("Submit a quick action's canned instruction for the selected target"),
		mcp.WithString("actionId",
			mcp.Description("ID from list_quick_actions"),
			mcp.Required(),
		),
	), s.handleRunQuickAction)

	// ── list_edit_history ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_edit_history",
		mcp.WithDescription("List this session's edit records, oldest first"),
		mcp.WithString("selectionKey",
			mcp.Description("Only records for this selection key (e.g. element-<pageId>-<elementId>)"),
		),
	), s.handleListEditHistory)

	// ── get_edit_state ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_edit_state",
		mcp.WithDescription("Report whether an edit is in flight, the last outcome and the current error banner"),
	), s.handleGetEditState)

	// ── dismiss_error ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("dismiss_error",
		mcp.WithDescription("Clear the error banner left by a failed edit"),
	), s.handleDismissError)
}

func (s *Server) handleApplyManualEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op := req.GetString("op", "")
	key := req.GetString("key", "")
	if op == "" || key == "" {
		return nil, fmt.Errorf("op and key are required")
	}
	e := editor.Edit{
		Op:    editor.Op(op),
		Key:   key,
		Index: req.GetInt("index", 0),
		Field: req.GetString("field", ""),
	}
	if _, ok := req.GetArguments()["value"]; ok {
		_, cs, err := s.session.Fields()
		if err != nil {
			return errorResult(err), nil
		}
		e.Value = editor.ParseValue(cs, e, req.GetString("value", ""))
	}

	props, err := s.session.ApplyManualEdit(ctx, e)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(props)
}

func (s *Server) handleSetDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.session.Selection().IsEmpty() {
		return errorResult(errors.New("nothing selected: drafts belong to a selection")), nil
	}
	s.session.SetDraft(req.GetString("text", ""))
	return textResult("Draft saved"), nil
}

func (s *Server) handleSubmitEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := s.session.SubmitEdit(ctx, req.GetString("instruction", ""))
	return s.editResult(rec, err)
}

func (s *Server) handleListQuickActions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.session.QuickActions())
}

func (s *Server) handleRunQuickAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	actionID := req.GetString("actionId", "")
	if actionID == "" {
		return nil, fmt.Errorf("actionId is required")
	}
	rec, err := s.session.RunQuickAction(ctx, actionID)
	return s.editResult(rec, err)
}

func (s *Server) handleListEditHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if key := req.GetString("selectionKey", ""); key != "" {
		return jsonResult(s.session.HistoryFor(key))
	}
	return jsonResult(s.session.History())
}

func (s *Server) handleGetEditState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.session.State())
}

func (s *Server) handleDismissError(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.session.DismissError(ctx)
	return textResult("Error dismissed"), nil
}

// editResult reports local rejections as tool errors and every gateway
// outcome, failures included, as the history record.
func (s *Server) editResult(rec domain.WorksheetEdit, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	if !rec.Success {
		s.log.Warn("edit failed", "edit_id", rec.ID, "error", rec.Error)
	}
	return jsonResult(rec)
}
