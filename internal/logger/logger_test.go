package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs_Redacts(t *testing.T) {
	got := sanitizeKVs([]interface{}{
		"api_key", "sk-123",
		"Authorization", "Bearer x",
		"model", "gpt-4.1-mini",
		"headers", map[string]interface{}{"x-token": "t", "accept": "json"},
		"dangling",
	})

	assert.Equal(t, []interface{}{
		"api_key", "[REDACTED]",
		"Authorization", "[REDACTED]",
		"model", "gpt-4.1-mini",
		"headers", map[string]interface{}{"x-token": "[REDACTED]", "accept": "json"},
		"dangling",
	}, got)
}

func TestLogger_WritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("component", "edit").Info("edit applied", "selection", "page-1", "password", "hunter2")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "edit applied", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "edit", ctx["component"])
	assert.Equal(t, "page-1", ctx["selection"])
	assert.Equal(t, "[REDACTED]", ctx["password"])
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, err := New("dev", "loud")
	assert.Error(t, err)

	l, err := New("prod", "warn")
	require.NoError(t, err)
	l.Debug("dropped")
}

func TestNop(t *testing.T) {
	Nop().Info("nothing happens", "k", "v")
}
