package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksheet/internal/app"
	"worksheet/internal/config"
	"worksheet/internal/domain"
	"worksheet/internal/gateway"
	"worksheet/internal/gateway/scripted"
	"worksheet/internal/logger"
)

func newTestServer(t *testing.T, gw gateway.Gateway) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.History.Backend = config.HistoryMemory

	a, err := app.New(context.Background(), cfg, app.Options{Logger: logger.Nop(), Gateway: gw})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	_, err = a.Worksheets().ImportPageState(context.Background(), domain.PageState{
		Page: domain.Page{ID: "p1", WorksheetID: "w1", Name: "Farm"},
		Elements: []domain.CanvasElement{
			{ID: "mc", Type: "multiple-choice", Properties: domain.PropertyBag{
				"question": "Which animal says moo?",
				"options":  []any{map[string]any{"text": "Cow", "correct": true}},
			}},
			{ID: "vid", Type: "video-embed"},
		},
	})
	require.NoError(t, err)
	return New(a, "test", logger.Nop())
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestListComponentTypes(t *testing.T) {
	s := newTestServer(t, scripted.New())
	out, isErr := call(t, s.handleListComponentTypes, nil)
	require.False(t, isErr)

	var got []componentSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	types := make([]string, len(got))
	for i, c := range got {
		types[i] = c.Type
	}
	assert.Contains(t, types, "tap-image")
	assert.Contains(t, types, "page")
}

func TestGetComponentSchema_UnknownType(t *testing.T) {
	s := newTestServer(t, scripted.New())
	out, isErr := call(t, s.handleGetComponentSchema, map[string]any{"type": "video-embed"})
	assert.True(t, isErr)
	assert.Contains(t, out, "no editable properties")

	out, isErr = call(t, s.handleGetComponentSchema, map[string]any{"type": "multiple-choice"})
	require.False(t, isErr)
	assert.Contains(t, out, "patchSchema")
}

func TestManualEditFlow(t *testing.T) {
	s := newTestServer(t, scripted.New())

	_, isErr := call(t, s.handleSelectElement, map[string]any{"pageId": "p1", "elementId": "mc"})
	require.False(t, isErr)

	out, isErr := call(t, s.handleApplyManualEdit, map[string]any{"op": "append", "key": "options"})
	require.False(t, isErr, out)

	out, isErr = call(t, s.handleApplyManualEdit, map[string]any{
		"op": "update-item-field", "key": "options", "index": 1, "field": "text", "value": "Horse",
	})
	require.False(t, isErr, out)

	var props map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &props))
	options := props["options"].([]any)
	require.Len(t, options, 2)
	assert.Equal(t, "Horse", options[1].(map[string]any)["text"])
	assert.Equal(t, "Which animal says moo?", props["question"])

	out, isErr = call(t, s.handleApplyManualEdit, map[string]any{
		"op": "update-item-field", "key": "options", "index": 0, "field": "correct", "value": "maybe",
	})
	assert.True(t, isErr)
	assert.Contains(t, out, "options.0.correct")
}

func TestApplyManualEdit_TextValues(t *testing.T) {
	s := newTestServer(t, scripted.New())
	_, isErr := call(t, s.handleSelectElement, map[string]any{"pageId": "p1", "elementId": "mc"})
	require.False(t, isErr)

	for _, raw := range []string{"2024", "true", "null", ""} {
		out, isErr := call(t, s.handleApplyManualEdit, map[string]any{"op": "set", "key": "question", "value": raw})
		require.False(t, isErr, out)
		var props map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &props))
		assert.Equal(t, raw, props["question"])
	}

	out, isErr := call(t, s.handleApplyManualEdit, map[string]any{
		"op": "update-item-field", "key": "options", "index": 0, "field": "text", "value": "7",
	})
	require.False(t, isErr, out)
	assert.Contains(t, out, `"text": "7"`)
}

func TestSubmitEditFlow(t *testing.T) {
	gw := scripted.New(
		scripted.Step{Result: gateway.Failed("rate limited")},
		scripted.Step{Result: gateway.Succeeded(domain.PropertyBag{"question": "Which animal says baa?"},
			domain.WorksheetEditChange{Field: "question", Description: "cow to sheep"})},
	)
	s := newTestServer(t, gw)

	out, isErr := call(t, s.handleSubmitEdit, map[string]any{"instruction": "about sheep"})
	assert.True(t, isErr, "nothing selected is a local rejection")
	assert.Contains(t, out, "nothing selected")

	_, isErr = call(t, s.handleSelectElement, map[string]any{"pageId": "p1", "elementId": "mc"})
	require.False(t, isErr)
	_, isErr = call(t, s.handleSetDraft, map[string]any{"text": "about sheep"})
	require.False(t, isErr)

	out, isErr = call(t, s.handleSubmitEdit, nil)
	require.False(t, isErr, "gateway failures are records, not tool errors")
	var rec domain.WorksheetEdit
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.False(t, rec.Success)
	assert.Equal(t, "about sheep", rec.Instruction)

	out, _ = call(t, s.handleGetEditState, nil)
	assert.Contains(t, out, "rate limited")
	_, _ = call(t, s.handleDismissError, nil)
	out, _ = call(t, s.handleGetEditState, nil)
	assert.NotContains(t, out, "rate limited")

	out, isErr = call(t, s.handleSubmitEdit, nil)
	require.False(t, isErr)
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.True(t, rec.Success, "draft survives a failure and can be retried")

	out, _ = call(t, s.handleListEditHistory, map[string]any{"selectionKey": "element-p1-mc"})
	var hist []domain.WorksheetEdit
	require.NoError(t, json.Unmarshal([]byte(out), &hist))
	assert.Len(t, hist, 2)

	out, _ = call(t, s.handleListEditHistory, map[string]any{"selectionKey": "page-p1"})
	assert.JSONEq(t, "[]", out)

	out, _ = call(t, s.handleGetProperties, nil)
	assert.Contains(t, out, "Which animal says baa?")
}

func TestRunQuickAction_Unknown(t *testing.T) {
	s := newTestServer(t, scripted.New())
	_, isErr := call(t, s.handleSelectPage, map[string]any{"pageId": "p1"})
	require.False(t, isErr)

	out, isErr := call(t, s.handleRunQuickAction, map[string]any{"actionId": "nope"})
	assert.True(t, isErr)
	assert.Contains(t, out, "nope")
}

func TestGetProperties_UnknownComponent(t *testing.T) {
	s := newTestServer(t, scripted.New())
	_, isErr := call(t, s.handleSelectElement, map[string]any{"pageId": "p1", "elementId": "vid"})
	require.False(t, isErr)

	out, isErr := call(t, s.handleGetProperties, nil)
	require.False(t, isErr)
	assert.Contains(t, out, `"editable": false`)
}

func TestPageElementsResource(t *testing.T) {
	s := newTestServer(t, scripted.New())
	var req mcp.ReadResourceRequest
	req.Params.URI = "worksheet://page/p1/elements"

	contents, err := s.handlePageElementsResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(mcp.TextResourceContents).Text
	assert.Contains(t, text, `"id": "mc"`)
	assert.Contains(t, text, `"editable": false`)
}

func TestExtractPageIDFromURI(t *testing.T) {
	assert.Equal(t, "p1", extractPageIDFromURI("worksheet://page/p1/elements"))
	assert.Empty(t, extractPageIDFromURI("worksheet://page/p1/blocks"))
	assert.Empty(t, extractPageIDFromURI("notes://page/p1/elements"))
	assert.Empty(t, extractPageIDFromURI("worksheet://page/a/b/elements"))
}
