package obslog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewDefaultsToInfoText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("should not appear")
	logger.Info("hello", "component", "locker")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("debug line leaked at default info level: %q", out)
	}
	if !strings.Contains(out, "hello") || !strings.Contains(out, "component=locker") {
		t.Errorf("missing expected text fields: %q", out)
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.With("component", "runner").Debug("fetch start", "fetcher", "aws_iam")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not valid JSON: %v (%q)", err, buf.String())
	}
	if rec["component"] != "runner" || rec["fetcher"] != "aws_iam" {
		t.Errorf("unexpected fields: %v", rec)
	}
	if rec["msg"] != "fetch start" {
		t.Errorf("msg = %v, want %q", rec["msg"], "fetch start")
	}
}

func TestNewRejectsUnknownLevelAndFormat(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWarnAndErrorLevelsRespected(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept warn")
	logger.Error("kept error")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info line leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "kept warn") || !strings.Contains(out, "kept error") {
		t.Errorf("missing expected lines: %q", out)
	}
}
