package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestETLLoggerWritesRotatedFile(t *testing.T) {
	opts := DefaultLogOptions()
	opts.FilePath = filepath.Join(t.TempDir(), "logs", "etl.log")
	opts.Compress = false

	logger, err := NewETLLogger(opts)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("строк записано: %d", 42)
	logger.Debug("не должно попасть в файл")
	logger.Sync()

	data, err := os.ReadFile(opts.FilePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "строк записано: 42") {
		t.Fatalf("log file missing message: %s", data)
	}
	if strings.Contains(string(data), "не должно попасть") {
		t.Fatalf("debug message written at info level: %s", data)
	}
}

func TestETLLoggerRejectsUnknownLevel(t *testing.T) {
	opts := DefaultLogOptions()
	opts.FilePath = ""
	opts.Level = "loud"
	if _, err := NewETLLogger(opts); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Warn("ничего: %v", nil)
	logger.LogBuildComplete("run", time.Now(), map[string]int{"fact_activity": 1})
}
