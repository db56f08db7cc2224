package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, test := range tests {
		if got := logLevelFromString(test.input); got != test.expected {
			t.Errorf("logLevelFromString(%q) = %v, want %v", test.input, got, test.expected)
		}
	}
}

func TestGetBuildInfoMode(t *testing.T) {
	tests := []struct {
		input    string
		expected BuildInfoMode
	}{
		{"never", BuildInfoNever},
		{"once", BuildInfoOnce},
		{"always", BuildInfoAlways},
		{"sometimes", BuildInfoNever},
	}
	for _, test := range tests {
		if got := getBuildInfoMode(test.input); got != test.expected {
			t.Errorf("getBuildInfoMode(%q) = %v, want %v", test.input, got, test.expected)
		}
	}
}

func writeBuildInfo(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "build-info.yaml")
	if err := os.WriteFile(filename, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestNewLoggerAddsService(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "recruitment-api", LoggerConfig{LogLevel: "info"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("participant created")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %s", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if record["service"] != "recruitment-api" || record["msg"] != "participant created" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestNewLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := newLogger(&buf, "task-reminders", LoggerConfig{Format: "text"})
	logger.Info("reminders sent")
	if !strings.Contains(buf.String(), "service=task-reminders") || !strings.Contains(buf.String(), `msg="reminders sent"`) {
		t.Errorf("unexpected text output: %s", buf.String())
	}
}

func TestNewLoggerBuildInfo(t *testing.T) {
	filename := writeBuildInfo(t, "version: v1.2.0\ncommit: abc123\n")

	var buf bytes.Buffer
	logger, err := newLogger(&buf, "recruitment-api", LoggerConfig{IncludeBuildInfo: "always", BuildInfoFile: filename})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("started")
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if record["build.version"] != "v1.2.0" || record["build.commit"] != "abc123" {
		t.Errorf("build info missing: %v", record)
	}

	buf.Reset()
	_, err = newLogger(&buf, "recruitment-api", LoggerConfig{IncludeBuildInfo: "once", BuildInfoFile: filename})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"msg":"Build info"`) {
		t.Errorf("expected a build info record, got %s", buf.String())
	}
}

func TestNewLoggerMissingBuildInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "recruitment-api", LoggerConfig{
		IncludeBuildInfo: "always",
		BuildInfoFile:    filepath.Join(t.TempDir(), "missing.yaml"),
	})
	if err == nil {
		t.Error("expected an error for a missing build info file")
	}
	if logger == nil {
		t.Fatal("expected a usable logger")
	}
}

func TestLoadBuildInfoSorted(t *testing.T) {
	filename := writeBuildInfo(t, "version: v1\nbranch: main\ncommit: abc\n")
	attrs, err := loadBuildInfoAsSlogAttrs(filename, "build.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var keys []string
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	if strings.Join(keys, ",") != "build.branch,build.commit,build.version" {
		t.Errorf("unexpected keys: %v", keys)
	}

	if _, err := loadBuildInfoAsSlogAttrs(writeBuildInfo(t, "- not\n- a map\n"), "build."); err == nil {
		t.Error("expected a parse error")
	}
}
