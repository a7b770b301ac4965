package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shrink/internal/config"
	"shrink/internal/logging"
	"shrink/internal/services"
)

func TestNewFromConfigCreatesSessionFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, path, err := logging.NewFromConfig(&cfg, "shrinkd")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	if !strings.HasPrefix(filepath.Base(path), "shrinkd-") {
		t.Fatalf("unexpected log path %q", path)
	}
	logger.Info("daemon started")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon started") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerLiftsJobSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithState(services.WithJobID(context.Background(), "abc"), "encoding")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "compress")).Info("attempt started", logging.String("path", "hardware"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, fragment := range []string{"[compress]", "Job abc (encoding)", "attempt started", "- path: hardware"} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in %q", fragment, text)
		}
	}
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
}

func TestJSONLoggerUsesLowercaseLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logging.WarnWithContext(logger, "fallback accepted", "hardware_partial_success",
		logging.Duration("elapsed", 1500*time.Millisecond),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if strings.Contains(text, "hidden") {
		t.Fatalf("expected info to be filtered at warn level: %q", text)
	}
	for _, fragment := range []string{`"level":"warn"`, `"ts":"`, `"elapsed":"1.5s"`, `"event_type":"hardware_partial_success"`, `"impact"`} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in %q", fragment, text)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestCleanupOldLogsKeepsCurrentSession(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "shrinkd-old.log")
	current := filepath.Join(dir, "shrinkd-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		past := time.Now().AddDate(0, 0, -30)
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if n := logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{Dir: dir, Pattern: "shrinkd-*.log", Exclude: []string{current}}); n != 1 {
		t.Fatalf("removed %d logs, want 1", n)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old session log removed, stat err=%v", err)
	}
	if _, err := os.Stat(current); err != nil {
		t.Fatalf("expected current session log kept: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("expected unrelated file kept: %v", err)
	}
}
