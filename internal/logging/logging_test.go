package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gantry/internal/logging"
)

func TestNewConsoleWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger = logging.WithComponent(logger, "probe")
	logger.Info("service ready", logging.Int("attempts", 3))
	logger.Debug("suppressed below info")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "INFO") {
		t.Fatalf("expected level label in output: %q", out)
	}
	if !strings.Contains(out, "probe") {
		t.Fatalf("expected component in output: %q", out)
	}
	if !strings.Contains(out, "attempts=3") {
		t.Fatalf("expected key=value rendering: %q", out)
	}
	if strings.Contains(out, "suppressed") {
		t.Fatalf("debug line should be filtered at info level: %q", out)
	}
}

func TestNewJSONEmitsStructuredRecords(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("job accepted", logging.String("job", "abc"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("log line is not JSON: %v: %q", err, string(data))
	}
	if record["msg"] != "job accepted" {
		t.Fatalf("unexpected msg field: %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level field: %v", record["level"])
	}
	if record["job"] != "abc" {
		t.Fatalf("unexpected job field: %v", record["job"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("expected ts field")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "logfmt"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("must not panic", logging.Error(os.ErrNotExist))
}
