package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Line is not valid JSON: %v (%s)", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{
		Level:     WARN,
		Format:    JSONFormat,
		Output:    &buf,
		Component: "test",
	})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message", nil)

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log lines with WARN level, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("Unexpected levels: %s, %s", entries[0].Level, entries[1].Level)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{
		Level:     INFO,
		Format:    JSONFormat,
		Output:    &buf,
		Component: "plotview",
	})

	logger.Info("payload loaded", Fields{
		"view":   "abc",
		"traces": 2,
	})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]

	if entry.Level != "INFO" {
		t.Errorf("Expected level INFO, got %s", entry.Level)
	}
	if entry.Message != "payload loaded" {
		t.Errorf("Expected message 'payload loaded', got %s", entry.Message)
	}
	if entry.Component != "plotview" {
		t.Errorf("Expected component 'plotview', got %s", entry.Component)
	}
	if entry.Fields["view"] != "abc" {
		t.Errorf("Expected field view='abc', got %v", entry.Fields["view"])
	}
	if entry.Fields["traces"] != float64(2) { // JSON numbers are float64
		t.Errorf("Expected field traces=2, got %v", entry.Fields["traces"])
	}
	if !strings.Contains(entry.Function, "TestJSONFormat") {
		t.Errorf("Expected caller function to be the test, got %s", entry.Function)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{
		Level:     INFO,
		Format:    TextFormat,
		Output:    &buf,
		Component: "server",
	})

	logger.Error("request failed", errors.New("boom"), Fields{
		"route":  "/",
		"status": 500,
	})

	output := buf.String()
	for _, want := range []string{"ERROR", "[server]", "request failed", "fields={route=/, status=500}", "error=boom"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got %q", want, output)
		}
	}
}

func TestWithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer

	base := New(Config{
		Level:     INFO,
		Format:    JSONFormat,
		Output:    &buf,
		Component: "base",
	})

	viewLogger := base.WithComponent("plotview").With(Fields{"view": "v1"})
	viewLogger.Info("mounted", Fields{"url": "http://127.0.0.1:5000/choropleth"})
	base.Info("unrelated")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Component != "plotview" {
		t.Errorf("Expected component 'plotview', got %s", entries[0].Component)
	}
	if entries[0].Fields["view"] != "v1" || entries[0].Fields["url"] == nil {
		t.Errorf("Expected merged fields, got %v", entries[0].Fields)
	}
	if entries[1].Component != "base" || len(entries[1].Fields) != 0 {
		t.Errorf("Base logger should be unaffected, got %+v", entries[1])
	}
}

func TestDerivedLoggersShareLevel(t *testing.T) {
	var buf bytes.Buffer

	base := New(Config{Level: INFO, Format: JSONFormat, Output: &buf})
	child := base.WithComponent("child")

	base.SetLevel(ERROR)
	child.Info("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("Expected level change to apply to derived logger, got %q", buf.String())
	}
}

func TestFatalExits(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: INFO, Format: JSONFormat, Output: &buf})

	code := -1
	logger.sink.exit = func(c int) { code = c }

	logger.Fatal("cannot start", errors.New("port in use"))
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0].Level != "FATAL" || entries[0].Error != "port in use" {
		t.Errorf("Unexpected fatal entry: %+v", entries)
	}
}

func TestAutoFormatOnBuffer(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: INFO, Format: AutoFormat, Output: &buf})
	logger.Info("not a terminal")

	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("Expected JSON output for non-terminal writer, got %q", buf.String())
	}
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer

	originalLogger := GetGlobalLogger()
	defer SetGlobalLogger(originalLogger)

	SetGlobalLogger(New(Config{
		Level:     INFO,
		Format:    JSONFormat,
		Output:    &buf,
		Component: "global-test",
	}))

	Info("global info message")
	Warn("global warn message")
	Component("mapbot").Info("component message")

	entries := decodeLines(t, &buf)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 log lines, got %d", len(entries))
	}
	if entries[0].Level != "INFO" || entries[0].Message != "global info message" {
		t.Errorf("First line incorrect: level=%s, message=%s", entries[0].Level, entries[0].Message)
	}
	if !strings.Contains(entries[0].Function, "TestGlobalLogger") {
		t.Errorf("Expected caller to be the test, got %s", entries[0].Function)
	}
	if entries[1].Level != "WARN" || entries[1].Message != "global warn message" {
		t.Errorf("Second line incorrect: level=%s, message=%s", entries[1].Level, entries[1].Message)
	}
	if entries[2].Component != "mapbot" {
		t.Errorf("Expected component 'mapbot', got %s", entries[2].Component)
	}
}

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer

	originalLogger := GetGlobalLogger()
	defer SetGlobalLogger(originalLogger)
	SetGlobalLogger(New(Config{Level: INFO, Format: JSONFormat, Output: &buf}))

	if err := Configure("debug", "text"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	Debug("visible now")
	if !strings.Contains(buf.String(), "DEBUG") || strings.HasPrefix(buf.String(), "{") {
		t.Errorf("Expected text DEBUG entry, got %q", buf.String())
	}

	if err := Configure("loud", ""); err == nil {
		t.Error("Expected error for unknown level")
	}
	if err := Configure("", "xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	levels := map[string]LogLevel{
		"debug": DEBUG, "INFO": INFO, "warning": WARN, "Warn": WARN, "error": ERROR, "fatal": FATAL,
	}
	for in, want := range levels {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	formats := map[string]LogFormat{"json": JSONFormat, "TEXT": TextFormat, "auto": AutoFormat}
	for in, want := range formats {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{FATAL, "FATAL"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, test := range tests {
		if test.level.String() != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, test.level.String())
		}
	}
}

func BenchmarkJSONLogging(b *testing.B) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  INFO,
		Format: JSONFormat,
		Output: &buf,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", Fields{
			"iteration": i,
			"benchmark": true,
		})
	}
}
