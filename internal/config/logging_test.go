package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupLoggerWithWriters_FansOut(t *testing.T) {
	var console, file bytes.Buffer
	logger := SetupLoggerWithWriters(&console, &file, slog.LevelInfo)

	logger.Info("proposal received", "path", "/in/a.pdf")

	if !strings.Contains(console.String(), "proposal received") {
		t.Errorf("console output = %q, want the message", console.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if entry["msg"] != "proposal received" {
		t.Errorf("file msg = %v, want proposal received", entry["msg"])
	}
	if entry["path"] != "/in/a.pdf" {
		t.Errorf("file path attr = %v, want /in/a.pdf", entry["path"])
	}
}

func TestSetupLoggerWithWriters_Level(t *testing.T) {
	var console, file bytes.Buffer
	logger := SetupLoggerWithWriters(&console, &file, slog.LevelWarn)

	logger.Debug("noise")
	logger.Info("also noise")

	if console.Len() != 0 || file.Len() != 0 {
		t.Errorf("below-level records written: console=%q file=%q", console.String(), file.String())
	}
}
