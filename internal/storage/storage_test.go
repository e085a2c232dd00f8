package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksheet/internal/domain"
	"worksheet/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "data", "worksheet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worksheet.db")
	db, err := storage.New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = storage.New(path)
	require.NoError(t, err)
	assert.Equal(t, storage.DialectSQLite, db.Dialect())
	require.NoError(t, db.Close())
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]storage.Dialect{
		"":           storage.DialectSQLite,
		"sqlite3":    storage.DialectSQLite,
		"PostgreSQL": storage.DialectPostgres,
		"mariadb":    storage.DialectMySQL,
	} {
		got, err := storage.ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := storage.ParseDialect("oracle")
	assert.Error(t, err)
}

func TestPageStore_RoundTrip(t *testing.T) {
	pages := storage.NewPageStore(openTestDB(t))

	require.NoError(t, pages.CreateWorksheet(&domain.Worksheet{ID: "w1", Name: "Animals", Icon: "🐾"}))
	ws, err := pages.GetWorksheet("w1")
	require.NoError(t, err)
	assert.Equal(t, "Animals", ws.Name)
	assert.WithinDuration(t, time.Now(), ws.CreatedAt, time.Minute)

	require.NoError(t, pages.CreatePage(&domain.Page{ID: "p2", WorksheetID: "w1", Name: "Two", Order: 1}))
	require.NoError(t, pages.CreatePage(&domain.Page{
		ID: "p1", WorksheetID: "w1", Name: "One",
		Properties: domain.PropertyBag{"orientation": "landscape", "margin": 24},
	}))

	list, err := pages.ListPages("w1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID, "ordered by sort order")
	assert.Equal(t, domain.PropertyBag{}, list[1].Properties)

	p, err := pages.GetPage("p1")
	require.NoError(t, err)
	assert.Equal(t, "landscape", p.Properties["orientation"])
	assert.Equal(t, 24.0, p.Properties["margin"])

	require.NoError(t, pages.UpdatePageProperties("p1", domain.PropertyBag{"orientation": "portrait"}))
	p, err = pages.GetPage("p1")
	require.NoError(t, err)
	assert.Equal(t, domain.PropertyBag{"orientation": "portrait"}, p.Properties)
}

func TestPageStore_NotFound(t *testing.T) {
	pages := storage.NewPageStore(openTestDB(t))

	_, err := pages.GetWorksheet("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = pages.GetPage("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	err = pages.UpdatePageProperties("nope", domain.PropertyBag{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestElementStore_RoundTrip(t *testing.T) {
	elements := storage.NewElementStore(openTestDB(t))

	for _, id := range []string{"e3", "e1", "e2"} {
		require.NoError(t, elements.CreateElement(&domain.CanvasElement{
			ID: id, PageID: "p1", Type: "title", X: 10, Width: 200,
			Properties: domain.PropertyBag{"text": id},
		}))
	}
	require.NoError(t, elements.CreateElement(&domain.CanvasElement{ID: "x1", PageID: "p2", Type: "word-bank"}))

	list, err := elements.ListElements("p1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"e3", "e1", "e2"}, []string{list[0].ID, list[1].ID, list[2].ID})

	require.NoError(t, elements.UpdateElementProperties("e1", domain.PropertyBag{
		"text":    "Farm animals",
		"options": []any{map[string]any{"text": "cow", "correct": true}},
	}))
	e, err := elements.GetElement("e1")
	require.NoError(t, err)
	assert.Equal(t, "Farm animals", e.Properties["text"])
	assert.Equal(t, 10.0, e.X, "geometry untouched")
	assert.Equal(t, true, e.Properties["options"].([]any)[0].(map[string]any)["correct"])

	require.NoError(t, elements.DeleteElementsByPage("p1"))
	list, err = elements.ListElements("p1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = elements.GetElement("e1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, elements.UpdateElementProperties("e1", domain.PropertyBag{}), domain.ErrNotFound)
}

func TestEditStore_AppendAndList(t *testing.T) {
	edits := storage.NewEditStore(openTestDB(t))
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, edits.AppendEdit(domain.WorksheetEdit{
		ID: "a", SessionID: "s1", SelectionKey: "element-p1-e1", Instruction: "make it bigger",
		Changes:   []domain.WorksheetEditChange{{Field: "size", Description: "medium to large"}},
		Timestamp: ts, Success: true,
	}))
	require.NoError(t, edits.AppendEdit(domain.WorksheetEdit{
		ID: "b", SessionID: "s1", Instruction: "translate", Timestamp: ts, Error: "gateway timeout",
	}))
	require.NoError(t, edits.AppendEdit(domain.WorksheetEdit{ID: "c", SessionID: "s2", Instruction: "x", Timestamp: ts}))

	list, err := edits.ListEdits("s1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "a", list[0].ID)
	assert.True(t, list[0].Success)
	assert.Equal(t, "size", list[0].Changes[0].Field)
	assert.True(t, ts.Equal(list[0].Timestamp))

	assert.Equal(t, "b", list[1].ID)
	assert.False(t, list[1].Success)
	assert.Equal(t, "gateway timeout", list[1].Error)
	assert.Empty(t, list[1].Changes)

	assert.Error(t, edits.AppendEdit(domain.WorksheetEdit{ID: "a", SessionID: "s1", Timestamp: ts}), "ids are unique")
}
