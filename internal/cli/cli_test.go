package cli_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksheet/internal/app"
	"worksheet/internal/cli"
	"worksheet/internal/domain"
	"worksheet/internal/gateway"
	"worksheet/internal/gateway/scripted"
	"worksheet/internal/logger"
)

const farmPage = `{
  "page": {"id": "p1", "worksheetId": "w1", "name": "Farm"},
  "elements": [
    {"id": "mc", "type": "multiple-choice", "properties": {
      "question": "Which animal says moo?",
      "options": [{"text": "Cow", "correct": true}]
    }},
    {"id": "vid", "type": "video-embed", "properties": {}}
  ]
}`

// isolate points config, data and history at a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("WORKSHEET_DATA_DIR", dir)
	t.Setenv("WORKSHEET_STORAGE_DRIVER", "sqlite")
	t.Setenv("WORKSHEET_HISTORY_BACKEND", "sql")
	t.Setenv("WORKSHEET_GATEWAY_PROVIDER", "scripted")
	t.Setenv("WORKSHEET_LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, opts app.Options, args ...string) (string, error) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	cmd := cli.NewRootCmd("test", opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func importFarm(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, "farm.json")
	require.NoError(t, os.WriteFile(path, []byte(farmPage), 0644))
	out, err := run(t, app.Options{}, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported page p1 with 2 elements")
}

func TestVersion(t *testing.T) {
	out, err := run(t, app.Options{}, "version")
	require.NoError(t, err)
	assert.Equal(t, "worksheet version test\n", out)
}

func TestSchemas(t *testing.T) {
	isolate(t)

	out, err := run(t, app.Options{}, "schemas")
	require.NoError(t, err)
	assert.Contains(t, out, "multiple-choice")
	assert.Contains(t, out, "page")

	out, err = run(t, app.Options{}, "schemas", "multiple-choice", "--patch")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Contains(t, doc["properties"], "options")

	_, err = run(t, app.Options{}, "schemas", "video-embed")
	assert.ErrorContains(t, err, "no editable properties")
}

func TestImportShowSet(t *testing.T) {
	dir := isolate(t)
	importFarm(t, dir)

	out, err := run(t, app.Options{}, "pages", "w1")
	require.NoError(t, err)
	assert.Contains(t, out, "Farm")

	out, err = run(t, app.Options{}, "show", "--page", "p1", "--element", "mc")
	require.NoError(t, err)
	assert.Contains(t, out, "Which animal says moo?")
	assert.Contains(t, out, `"editable": true`)

	_, err = run(t, app.Options{}, "set", "--page", "p1", "--element", "mc", "--op", "append", "--key", "options")
	require.NoError(t, err)
	out, err = run(t, app.Options{}, "set", "--page", "p1", "--element", "mc",
		"--op", "update-item-field", "--key", "options", "--index", "1", "--field", "text", "--value", "Horse")
	require.NoError(t, err)

	var props map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &props))
	assert.Len(t, props["options"], 2)

	// persisted across invocations
	out, err = run(t, app.Options{}, "show", "--page", "p1", "--element", "mc")
	require.NoError(t, err)
	assert.Contains(t, out, "Horse")

	_, err = run(t, app.Options{}, "set", "--page", "p1", "--element", "mc",
		"--op", "update-item-field", "--key", "options", "--index", "0", "--field", "correct", "--value", "maybe")
	assert.ErrorContains(t, err, "options.0.correct")

	out, err = run(t, app.Options{}, "set", "--page", "p1", "--element", "mc", "--key", "question", "--value", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, `"question": "2024"`)

	_, err = run(t, app.Options{}, "show", "--page", "p2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditAndHistory(t *testing.T) {
	dir := isolate(t)
	importFarm(t, dir)

	gw := scripted.New(
		scripted.Step{Result: gateway.Succeeded(domain.PropertyBag{"question": "Which animal says baa?"},
			domain.WorksheetEditChange{Field: "question", Description: "cow to sheep"})},
		scripted.Step{Result: gateway.Failed("rate limited")},
	)
	opts := app.Options{Gateway: gw}

	out, err := run(t, opts, "edit", "--page", "p1", "--element", "mc", "--topic", "farm animals", "about", "sheep")
	require.NoError(t, err)
	var rec domain.WorksheetEdit
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.True(t, rec.Success)
	assert.Equal(t, "about sheep", rec.Instruction)

	reqs := gw.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "farm animals", reqs[0].Context.Topic)

	_, err = run(t, opts, "edit", "--page", "p1", "--element", "mc", "again")
	assert.ErrorContains(t, err, "rate limited")

	out, err = run(t, app.Options{}, "history", "--json", "--selection", "element-p1-mc")
	require.NoError(t, err)
	var hist []domain.WorksheetEdit
	require.NoError(t, json.Unmarshal([]byte(out), &hist))
	require.Len(t, hist, 2)
	assert.True(t, hist[0].Success)
	assert.False(t, hist[1].Success)

	out, err = run(t, app.Options{}, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "failed: rate limited")
}

func TestEdit_RequiresInstruction(t *testing.T) {
	isolate(t)
	_, err := run(t, app.Options{}, "edit", "--page", "p1")
	assert.ErrorContains(t, err, "instruction or --action")
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "conf", "worksheet.yaml")

	out, err := run(t, app.Options{}, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = run(t, app.Options{}, "--config", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, app.Options{}, "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	out, err = run(t, app.Options{}, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "provider: scripted")
}

type keyStore map[string][]byte

func (k keyStore) Get(key string) ([]byte, error) { return k[key], nil }
func (k keyStore) Set(key string, v []byte) error { k[key] = v; return nil }
func (k keyStore) Delete(key string) error { delete(k, key); return nil }

func TestConfigSetAndDeleteKey(t *testing.T) {
	isolate(t)
	t.Setenv("WORKSHEET_GATEWAY_API_KEY_ENV", "WORKSHEET_TEST_KEY")
	keys := keyStore{}
	opts := app.Options{Secrets: keys}

	out, err := run(t, opts, "config", "set-key", "sk-test")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", string(keys["WORKSHEET_TEST_KEY"]))
	assert.NotContains(t, out, "sk-test")

	cmd := cli.NewRootCmd("test", opts)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("  sk-from-stdin\n"))
	cmd.SetArgs([]string{"config", "set-key"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "sk-from-stdin", string(keys["WORKSHEET_TEST_KEY"]))

	_, err = run(t, opts, "config", "set-key", "   ")
	assert.ErrorContains(t, err, "empty")

	_, err = run(t, opts, "config", "delete-key")
	require.NoError(t, err)
	assert.NotContains(t, keys, "WORKSHEET_TEST_KEY")
}
