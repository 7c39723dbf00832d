package core

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger()

	if logger == nil {
		t.Error("NewDefaultLogger() should not return nil")
	}

	// Test that logger methods don't panic
	logger.Error("test error")
	logger.Errorf("test error: %s", "message")
	logger.Warn("test warning")
	logger.Warnf("test warning: %s", "message")
	logger.Info("test info")
	logger.Infof("test info: %s", "message")
	logger.Debug("test debug")
	logger.Debugf("test debug: %s", "message")
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerOptions{Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Infof("hidden %d", 1)
	logger.Warnf("visible %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "visible 2") {
		t.Errorf("warn entry missing: %q", out)
	}
}

func TestNewLogger_JSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerOptions{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.With("conn", "abc").Info("served")

	out := buf.String()
	if !strings.Contains(out, `"conn":"abc"`) {
		t.Errorf("expected conn field in JSON output, got %q", out)
	}
}

func TestNewLogger_InvalidOptions(t *testing.T) {
	if _, err := NewLogger(LoggerOptions{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := NewLogger(LoggerOptions{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
