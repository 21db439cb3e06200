package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerIncludesCategoryAndMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)

	l.LogOrder("CREATE", "order-1", "pending order stored")

	out := buf.String()
	assert.Contains(t, out, "ORDER")
	assert.Contains(t, out, "[CREATE] order-1 - pending order stored")
}

func TestSetLevelFiltersLowerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)
	l.SetLevel(WARN)

	l.Info("APP", "hidden")
	l.Debug("APP", "hidden too")
	l.Warn("APP", "visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("APP", "nothing") })
}

func TestFileLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(dir)
	l.LogPayment("CALLBACK", "ws_CO_1", "settled")
	l.Close()

	name := filepath.Join(dir, "ticketing-"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(name)
	require.NoError(t, err)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry.Category == "PAYMENT" {
			found = true
			assert.Equal(t, "INFO", entry.Level)
			assert.Equal(t, "[CALLBACK] ws_CO_1 - settled", entry.Message)
		}
	}
	assert.True(t, found)
}
