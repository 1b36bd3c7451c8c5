package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) Entry {
	t.Helper()
	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, "json", &buf)

	l.Debug("debug message")
	if buf.Len() > 0 {
		t.Error("debug message should not be logged at info level")
	}

	for name, logFn := range map[string]func(string, ...Fields){
		"info":  l.Info,
		"warn":  l.Warn,
		"error": l.Error,
	} {
		buf.Reset()
		logFn(name + " message")
		if buf.Len() == 0 {
			t.Errorf("%s message should be logged at info level", name)
		}
	}
}

func TestComponentLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(WarnLevel, "json", &buf)
	l.SetComponentLevel("steam.gateway", DebugLevel)

	l.WithComponent("steam.gateway").Debug("cache miss")
	if buf.Len() == 0 {
		t.Error("debug message should be logged for component with debug level")
	}

	buf.Reset()
	l.WithComponent("cache").Debug("cache miss")
	if buf.Len() > 0 {
		t.Error("debug message should not be logged for component without override")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, "json", &buf)

	l.Info("request completed", Fields{"endpoint": "ISteamUser/GetPlayerBans/v1", "status": 200})

	entry := decodeEntry(t, &buf)
	if entry.Message != "request completed" {
		t.Errorf("expected message 'request completed', got %q", entry.Message)
	}
	if entry.Level != "INFO" {
		t.Errorf("expected level INFO, got %s", entry.Level)
	}
	if entry.Fields["endpoint"] != "ISteamUser/GetPlayerBans/v1" {
		t.Errorf("unexpected endpoint field: %v", entry.Fields["endpoint"])
	}
	if entry.Fields["status"] != float64(200) {
		t.Errorf("unexpected status field: %v", entry.Fields["status"])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, "text", &buf)

	l.WithComponent("cache").WithCorrelationID("abc").Info("cache hit", Fields{"b": 2, "a": 1})

	out := buf.String()
	for _, want := range []string{"INFO", "[cache]", "[abc]", "cache hit", "a=1 b=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output %q should contain %q", out, want)
		}
	}
}

func TestSanitization(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, "json", &buf)

	if err := l.SetSanitizePatterns([]string{"(?i)token"}); err != nil {
		t.Fatalf("failed to set sanitize patterns: %v", err)
	}

	l.Info("sensitive data", Fields{
		"api_key":  "ABCDEF0123456789",
		"token":    "Bearer abc123def456",
		"steam_id": "76561198007433923",
	})

	entry := decodeEntry(t, &buf)
	if got := entry.Fields["api_key"]; got != "***6789" {
		t.Errorf("api_key should be redacted by default, got %v", got)
	}
	if got, _ := entry.Fields["token"].(string); !strings.HasPrefix(got, "***") {
		t.Errorf("token should be redacted, got %v", got)
	}
	if entry.Fields["steam_id"] != "76561198007433923" {
		t.Error("steam_id should not be redacted")
	}
}

func TestSanitization_InvalidPattern(t *testing.T) {
	l := New(InfoLevel, "json", &bytes.Buffer{})
	if err := l.SetSanitizePatterns([]string{"("}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	Init(InfoLevel, "json", &buf)

	ctx := WithCorrelationID(context.Background(), "ctx-123")
	FromContext(ctx, "api").Info("test message")

	entry := decodeEntry(t, &buf)
	if entry.CorrelationID != "ctx-123" {
		t.Errorf("expected correlation ID ctx-123, got %s", entry.CorrelationID)
	}
	if entry.Component != "api" {
		t.Errorf("expected component api, got %s", entry.Component)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"debug", DebugLevel, false},
		{"DEBUG", DebugLevel, false},
		{"info", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && level != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestMergeFields(t *testing.T) {
	result := mergeFields(Fields{"a": 1, "b": 2}, Fields{"c": 3}, Fields{"b": 5})

	if result["a"] != 1 || result["b"] != 5 || result["c"] != 3 {
		t.Errorf("unexpected merge result: %v", result)
	}
	if mergeFields() != nil {
		t.Error("expected nil for no fields")
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	if a == b {
		t.Error("expected unique correlation IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected UUID length 36, got %d", len(a))
	}
	if got := GenerateShortID(); len(got) != 16 {
		t.Errorf("expected short ID length 16, got %d", len(got))
	}
}
