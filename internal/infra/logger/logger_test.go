package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJSONOutputToStdoutAndFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "app.log")
	Init("debug", FileOptions{Path: logPath, MaxSizeMB: 1, MaxBackups: 1})

	var buf bytes.Buffer
	SetWriters(&buf, &buf)
	t.Cleanup(func() {
		Init("info", FileOptions{})
		SetWriters(nil, nil)
	})

	Info("scrape finished", zap.Int("images", 7))
	Named("bot").Debug("named entry")
	require.NoError(t, Logger().Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "scrape finished", first["msg"])
	assert.EqualValues(t, 7, first["images"])
	assert.Contains(t, first, "timestamp")

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "bot", second["logger"])

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scrape finished")
}

func TestLevelFiltering(t *testing.T) {
	Init("warn", FileOptions{})
	var buf bytes.Buffer
	SetWriters(&buf, &buf)
	t.Cleanup(func() {
		Init("info", FileOptions{})
		SetWriters(nil, nil)
	})

	Info("hidden")
	Warnf("visible %d", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible 1")
	assert.False(t, IsDebugEnabled())
}
