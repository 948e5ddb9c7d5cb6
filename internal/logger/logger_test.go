package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"platewatch/internal/config"
)

func TestNew_WritesAllLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Info("frame %d published", 7)
	l.Warning("queue %s", "full")
	l.Error("stream failed: %v", "eof")

	out := buf.String()
	for _, want := range []string{"frame 7 published", "queue full", "stream failed: eof", `"level":"warn"`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestNewLogger_CreatesLevelFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l := NewLogger(&config.Config{LogDirectory: dir})

	l.Info("hello info")
	l.Warning("hello warning")
	l.Error("hello error")

	for file, want := range map[string]string{
		"info.log":    "hello info",
		"warning.log": "hello warning",
		"error.log":   "hello error",
	} {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", file, err)
		}
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected %s to contain %q, got: %s", file, want, data)
		}
	}
}

func TestCleanLogs_TruncatesFile(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(&config.Config{LogDirectory: dir})

	l.Warning("something to clear")
	l.CleanLogs("warning.log")

	data, err := os.ReadFile(filepath.Join(dir, "warning.log"))
	if err != nil {
		t.Fatalf("Failed to read warning.log: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected warning.log to be empty, got %d bytes", len(data))
	}
}
