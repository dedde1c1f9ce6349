package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"trace", LevelTrace},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_FiltersAndLabelsTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", &buf)

	logger.Log(context.Background(), LevelTrace, "hidden")
	logger.Debug("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("trace message logged at debug level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug message missing")
	}

	buf.Reset()
	logger = NewLogger("trace", &buf)
	logger.Log(context.Background(), LevelTrace, "tick")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("expected TRACE label, got %q", buf.String())
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	NewJSONLogger("info", &buf).Info("hello", "seed", "Northfield")
	if !strings.Contains(buf.String(), `"seed":"Northfield"`) {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("expected a logger")
	}
	l := Discard()
	if OrDiscard(l) != l {
		t.Error("expected the same logger back")
	}
}
