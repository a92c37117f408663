package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  LogLevel
	}{
		{name: "debug lower", input: "debug", want: LevelDebug},
		{name: "info upper", input: "INFO", want: LevelInfo},
		{name: "warn mixed", input: "WaRn", want: LevelWarn},
		{name: "warning alias", input: "warning", want: LevelWarn},
		{name: "error", input: "error", want: LevelError},
		{name: "fatal", input: "fatal", want: LevelFatal},
		{name: "trim spaces", input: "  debug  ", want: LevelDebug},
		{name: "unknown fallback", input: "verbose", want: LevelInfo},
		{name: "empty fallback", input: "", want: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Fatalf("ParseLevel(%q)=%v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelWarn, &buf)

	logger.Info("hidden %d", 1)
	logger.Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "shown 2") {
		t.Fatalf("warn line missing, got %q", out)
	}
}

func TestLogger_NamedAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelDebug, &buf).Named("agent")

	logger.Debug("round %d", 3)

	out := buf.String()
	if !strings.Contains(out, "[agent] round 3") {
		t.Fatalf("component tag missing, got %q", out)
	}
	if !strings.Contains(out, "logger_level_test.go") {
		t.Fatalf("caller file missing, got %q", out)
	}
}
