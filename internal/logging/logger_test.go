package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fileslink/internal/logging"
	"fileslink/internal/services"
	"fileslink/internal/testsupport"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "fileslink.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "queue").Info("artifact stored", logging.String(logging.FieldUniqueID, "ZvOWMhv1"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	if !strings.Contains(line, "queue [ZvOWMhv1]: artifact stored") {
		t.Fatalf("expected component and subject prefix, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode json log line: %v", err)
	}
	if record["msg"] != "json message" || record["level"] != "info" || record["k"] != "v" {
		t.Fatalf("unexpected record %#v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %#v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-1")
	ctx = services.WithChatID(ctx, -100123)
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, base).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldJobID] != "job-1" {
		t.Fatalf("job id missing: %#v", record)
	}
	if record[logging.FieldChatID] != float64(-100123) {
		t.Fatalf("chat id missing: %#v", record)
	}
	if record[logging.FieldCorrelationID] != "req-xyz" {
		t.Fatalf("correlation id missing: %#v", record)
	}
}

func TestConsoleLoggerFormatsFieldsForPeople(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-fields.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("artifact stored",
		logging.String(logging.FieldCorrelationID, "req-1"),
		logging.Int64("file_size", 2048),
		logging.String(logging.FieldEventType, "ingest_succeeded"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "artifact stored event_type=ingest_succeeded file_size=\"2.0 KiB\"") {
		t.Fatalf("expected lead fields first with readable size, got %q", line)
	}
	if strings.Contains(line, "req-1") {
		t.Fatalf("expected correlation id hidden at info, got %q", line)
	}
}
