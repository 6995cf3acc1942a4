package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

func TestLogFilePath(t *testing.T) {
	tests := []struct {
		name    string
		logsDir string
		logName string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "bubblelogs",
			logName: "bubbles",
			want:    filepath.Join("bubblelogs", "bubbles.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./bubblelogs",
			logName: "bubbles",
			want:    filepath.Join(".", "bubblelogs", "bubbles.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "bubbles"),
			logName: "bubbles",
			want:    filepath.Join("/var", "log", "bubbles", "bubbles.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, tt.logName, testTime))
		})
	}
}

func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	f, err := OpenLogFile(dir, "bubbles", testTime)
	require.NoError(t, err)
	_, err = f.WriteString("line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(LogFilePath(dir, "bubbles", testTime))
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}

func TestRenderLogger(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*RenderLogger)
		level string
		msg   string
	}{
		{"debug", func(l *RenderLogger) { l.Debug("frame emitted", "frame", 2, "phase", 0.5) }, "debug", "frame emitted"},
		{"info", func(l *RenderLogger) { l.Info("rendering started", "frame", 2, "phase", 0.5) }, "info", "rendering started"},
		{"error", func(l *RenderLogger) { l.Error("observer failed", "frame", 2, "phase", 0.5) }, "error", "observer failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewRenderLogger(NewZerolog(&buf, "debug", "run-1"))
			tt.log(l)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.msg, entry["message"])
			assert.Equal(t, "run-1", entry["run"])
			assert.Equal(t, float64(2), entry["frame"])
			assert.Equal(t, 0.5, entry["phase"])
		})
	}
}

func TestNewZerologLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewRenderLogger(NewZerolog(&buf, "INFO", ""))
	l.Debug("hidden")
	assert.Empty(t, buf.String())

	buf.Reset()
	l = NewRenderLogger(NewZerolog(&buf, "bogus", ""))
	l.Info("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), `"run"`)
}

func TestToFields_OddAndNonStringKeys(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "b", "dangling"})
	assert.Equal(t, map[string]any{"a": 1}, fields)
}

func TestNewGraylogWriter(t *testing.T) {
	w, err := NewGraylogWriter("127.0.0.1:12201", "bubbles")
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, "bubbles", w.Facility)
}
