package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksheet/internal/app"
	"worksheet/internal/config"
	"worksheet/internal/domain"
	"worksheet/internal/editor"
	"worksheet/internal/gateway"
	"worksheet/internal/gateway/scripted"
	"worksheet/internal/logger"
	"worksheet/internal/service"
)

// keyStore is an in-memory gateway key store.
type keyStore map[string][]byte

func (k keyStore) Get(key string) ([]byte, error) { return k[key], nil }
func (k keyStore) Set(key string, v []byte) error { k[key] = v; return nil }
func (k keyStore) Delete(key string) error { delete(k, key); return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.History.SessionID = "test-session"
	return cfg
}

func newApp(t *testing.T, cfg *config.Config, gw gateway.Gateway) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, app.Options{
		Logger:  logger.Nop(),
		Emitter: &service.MockEmitter{},
		Gateway: gw,
		Secrets: keyStore{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func seed(t *testing.T, a *app.App) {
	t.Helper()
	_, err := a.Worksheets().ImportPageState(context.Background(), domain.PageState{
		Page: domain.Page{ID: "p1", WorksheetID: "w1", Name: "Animals"},
		Elements: []domain.CanvasElement{
			{ID: "img", Type: "tap-image", Properties: domain.PropertyBag{
				"imageUrl": "https://example.com/cat.png", "size": "medium", "caption": "Cat",
			}},
			{ID: "title", Type: "title", Properties: domain.PropertyBag{"text": "Farm"}},
		},
	})
	require.NoError(t, err)
}

func TestSession_MakeItBigger(t *testing.T) {
	gw := scripted.New(scripted.Step{Result: gateway.Succeeded(
		domain.PropertyBag{"size": "large"},
		domain.WorksheetEditChange{Field: "size", Description: "medium to large"},
	)})
	a := newApp(t, testConfig(t), gw)
	seed(t, a)
	ctx := context.Background()

	_, err := a.Select(ctx, "p1", "img")
	require.NoError(t, err)
	a.SetDraft("make it bigger")

	rec, err := a.SubmitEdit(ctx, "")
	require.NoError(t, err)
	assert.True(t, rec.Success)
	assert.Equal(t, "element-p1-img", rec.SelectionKey)
	assert.Equal(t, "test-session", rec.SessionID)

	target, err := a.Target()
	require.NoError(t, err)
	assert.Equal(t, "large", target.Properties["size"])
	assert.Equal(t, "Cat", target.Properties["caption"])
	assert.Empty(t, a.Draft())

	req := gw.Requests()[0]
	assert.Equal(t, "make it bigger", req.Instruction)
	assert.Equal(t, "medium", req.Element.Properties["size"])
}

func TestSession_DraftFollowsSelection(t *testing.T) {
	a := newApp(t, testConfig(t), scripted.New())
	seed(t, a)
	ctx := context.Background()

	a.SetDraft("dropped, nothing selected")
	assert.Empty(t, a.Draft())

	_, err := a.Select(ctx, "p1", "img")
	require.NoError(t, err)
	a.SetDraft("bigger")

	_, err = a.Select(ctx, "p1", "title")
	require.NoError(t, err)
	assert.Empty(t, a.Draft())
	a.SetDraft("shorter")

	_, err = a.Select(ctx, "p1", "img")
	require.NoError(t, err)
	assert.Equal(t, "bigger", a.Draft())

	a.ClearSelection(ctx)
	assert.Empty(t, a.Draft())
	_, err = a.Select(ctx, "p1", "title")
	require.NoError(t, err)
	assert.Equal(t, "shorter", a.Draft())
}

func TestSession_ElementMustBelongToPage(t *testing.T) {
	a := newApp(t, testConfig(t), scripted.New())
	seed(t, a)
	_, err := a.Worksheets().ImportPageState(context.Background(), domain.PageState{
		Page: domain.Page{ID: "p2", WorksheetID: "w1"},
	})
	require.NoError(t, err)

	_, err = a.Select(context.Background(), "p2", "img")
	assert.ErrorIs(t, err, app.ErrElementNotOnPage)
	assert.True(t, a.Selection().IsEmpty())
}

func TestSession_ManualEditAndFields(t *testing.T) {
	a := newApp(t, testConfig(t), scripted.New())
	seed(t, a)
	ctx := context.Background()

	_, err := a.Select(ctx, "p1", "")
	require.NoError(t, err)

	_, err = a.ApplyManualEdit(ctx, editor.Edit{Op: editor.OpSet, Key: "margin", Value: 500})
	assert.ErrorIs(t, err, editor.ErrOutOfRange)

	props, err := a.ApplyManualEdit(ctx, editor.Edit{Op: editor.OpSet, Key: "orientation", Value: "landscape"})
	require.NoError(t, err)
	assert.Equal(t, "landscape", props["orientation"])

	fields, cs, err := a.Fields()
	require.NoError(t, err)
	require.NotNil(t, cs)
	assert.NotEmpty(t, fields)
	assert.NotEmpty(t, a.QuickActions())
}

func TestSession_HistoryRestoredForSameSession(t *testing.T) {
	cfg := testConfig(t)
	gw := scripted.New()
	gw.Always(scripted.Step{Result: gateway.Failed("model unavailable")})

	a, err := app.New(context.Background(), cfg, app.Options{Logger: logger.Nop(), Gateway: gw})
	require.NoError(t, err)
	seed(t, a)
	_, err = a.Select(context.Background(), "p1", "title")
	require.NoError(t, err)
	rec, err := a.SubmitEdit(context.Background(), "translate to Spanish")
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Equal(t, "model unavailable", a.State().Error)
	require.NoError(t, a.Close())

	b := newApp(t, cfg, gw)
	hist := b.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "model unavailable", hist[0].Error)
	assert.Empty(t, b.State().Error, "error banner is per process")
}

func TestNew_MissingAPIKeyFailsEditsNotStartup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gateway.APIKeyEnv = "WORKSHEET_TEST_NO_SUCH_KEY"
	a := newApp(t, cfg, nil)
	seed(t, a)
	ctx := context.Background()

	_, err := a.Select(ctx, "p1", "title")
	require.NoError(t, err)
	rec, err := a.SubmitEdit(ctx, "make it red")
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Contains(t, rec.Error, "WORKSHEET_TEST_NO_SUCH_KEY")
}

func TestNew_MemoryHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Backend = config.HistoryMemory
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "custom.db")
	a := newApp(t, cfg, scripted.New())
	assert.Equal(t, "test-session", a.SessionID())
	assert.Empty(t, a.History())
}
