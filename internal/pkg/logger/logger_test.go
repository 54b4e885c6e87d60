package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func newBufferLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{
		Level:       level,
		Format:      "json",
		Output:      &buf,
		ServiceName: "lienzo-test",
	}), &buf
}

func TestLoggerOutput(t *testing.T) {
	log, buf := newBufferLogger("debug")

	log.Info("item processed", "file", "photo.jpg")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if entry["msg"] != "item processed" {
		t.Errorf("expected msg='item processed', got %v", entry["msg"])
	}
	if entry["file"] != "photo.jpg" {
		t.Errorf("expected file='photo.jpg', got %v", entry["file"])
	}
	if entry["service"] != "lienzo-test" {
		t.Errorf("expected service='lienzo-test', got %v", entry["service"])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "text", Output: &buf})

	log.Info("hello", "k", "v")

	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("expected text handler output, got: %s", buf.String())
	}
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		logFn     func(*Logger)
		shouldLog bool
	}{
		{"info logs info", "info", func(l *Logger) { l.Info("x") }, true},
		{"info drops debug", "info", func(l *Logger) { l.Debug("x") }, false},
		{"debug logs debug", "debug", func(l *Logger) { l.Debug("x") }, true},
		{"warn drops info", "warn", func(l *Logger) { l.Info("x") }, false},
		{"error logs error", "error", func(l *Logger) { l.Error("x") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := newBufferLogger(tt.level)
			tt.logFn(log)

			if got := buf.Len() > 0; got != tt.shouldLog {
				t.Errorf("expected shouldLog=%v, got %v", tt.shouldLog, got)
			}
		})
	}
}

func TestWithHelpers(t *testing.T) {
	log, buf := newBufferLogger("info")

	log.WithComponent("batch").WithRunID("run-42").WithRequestID("req-7").Info("m")

	out := buf.String()
	for _, want := range []string{`"component":"batch"`, `"run_id":"run-42"`, `"request_id":"req-7"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestWithError(t *testing.T) {
	log, buf := newBufferLogger("info")

	if log.WithError(nil) != log {
		t.Error("WithError(nil) should return same logger")
	}

	log.WithError(context.DeadlineExceeded).Info("m")
	if !strings.Contains(buf.String(), "deadline exceeded") {
		t.Errorf("expected error text, got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	log, buf := newBufferLogger("info")

	ctx := ContextWithRequestID(context.Background(), "req-abc")
	ctx = ContextWithRunID(ctx, "run-xyz")

	log.FromContext(ctx).Info("m")

	out := buf.String()
	if !strings.Contains(out, "req-abc") || !strings.Contains(out, "run-xyz") {
		t.Errorf("expected request and run id in output, got: %s", out)
	}
}

func TestDiscard(t *testing.T) {
	// must not panic and must not write anywhere observable
	Discard().Error("ignored", "k", "v")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"DEBUG", "DEBUG"},
		{" info ", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input).String(); got != tt.expected {
				t.Errorf("parseLevel(%q) = %s, expected %s", tt.input, got, tt.expected)
			}
		})
	}
}
