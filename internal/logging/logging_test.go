package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatJSON}, &buf)

	logger.Info("note created", "id", 1)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "note created" {
		t.Errorf("msg = %v, want %q", entry["msg"], "note created")
	}
}

func TestNew_TextFormatRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: FormatText}, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message should be logged")
	}
}

func TestLevel_Validate(t *testing.T) {
	for _, l := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if err := l.Validate(); err != nil {
			t.Errorf("Validate(%q) error = %v", l, err)
		}
	}
	if err := Level("verbose").Validate(); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevel_ToSlogLevel(t *testing.T) {
	tests := map[Level]slog.Level{
		LevelDebug: slog.LevelDebug,
		LevelInfo:  slog.LevelInfo,
		LevelWarn:  slog.LevelWarn,
		LevelError: slog.LevelError,
		"unknown":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := in.ToSlogLevel(); got != want {
			t.Errorf("ToSlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormat_Validate(t *testing.T) {
	if err := FormatJSON.Validate(); err != nil {
		t.Errorf("Validate(json) error = %v", err)
	}
	if err := Format("xml").Validate(); err == nil {
		t.Error("expected error for unknown format")
	}
}
