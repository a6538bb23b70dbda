package logutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelTrace)

	logger.Log(t.Context(), LevelTrace, "trace message", "k", "v")
	out := buf.String()

	if !strings.Contains(out, "level=TRACE") {
		t.Errorf("TRACE-Level erwartet, bekommen %q", out)
	}
	if !strings.Contains(out, "source=logutil_test.go:") {
		t.Errorf("kurzer Quellpfad erwartet, bekommen %q", out)
	}
	if !strings.Contains(out, "k=v") {
		t.Errorf("Attribut erwartet, bekommen %q", out)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("keine Ausgabe erwartet, bekommen %q", buf.String())
	}

	logger.Info("shown")
	if !strings.Contains(buf.String(), "level=INFO") {
		t.Errorf("INFO erwartet, bekommen %q", buf.String())
	}
}
