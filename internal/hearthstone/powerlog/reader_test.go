package powerlog

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestReader_ReadEntry(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "Power.log")
	content := "D 19:33:27.3917220 PowerTaskList.DebugPrintPower() - CREATE_GAME\r\n" +
		"D 19:33:27.3917220 PowerTaskList.DebugPrintPower() -     GameEntity EntityID=1\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test log file: %v", err)
	}

	reader, err := NewReader(logPath)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	first, err := reader.ReadEntry()
	if err != nil {
		t.Fatalf("ReadEntry() error = %v", err)
	}
	if first.Raw != "D 19:33:27.3917220 PowerTaskList.DebugPrintPower() - CREATE_GAME" {
		t.Errorf("first line = %q", first.Raw)
	}
	if first.Offset != 0 {
		t.Errorf("first offset = %d", first.Offset)
	}

	second, err := reader.ReadEntry()
	if err != nil {
		t.Fatalf("ReadEntry() error = %v", err)
	}
	if second.Offset == 0 {
		t.Error("second offset should advance")
	}

	if _, err := reader.ReadEntry(); err != io.EOF {
		t.Errorf("ReadEntry() at end = %v, want io.EOF", err)
	}
}

func TestReader_ReadAll(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "Power.log")
	if err := os.WriteFile(logPath, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("Failed to create test log file: %v", err)
	}

	reader, err := NewReader(logPath)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("ReadAll() returned %d entries, want 3", len(entries))
	}
	if entries[2].Raw != "c" {
		t.Errorf("last entry = %q", entries[2].Raw)
	}
}

func TestNewReader_MissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Error("NewReader() on missing file expected error")
	}
}

func TestLogExists(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "Power.log")

	exists, err := LogExists(logPath)
	if err != nil || exists {
		t.Errorf("LogExists(missing) = %v, %v", exists, err)
	}

	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("Failed to create test log file: %v", err)
	}
	exists, err = LogExists(logPath)
	if err != nil || !exists {
		t.Errorf("LogExists(file) = %v, %v", exists, err)
	}

	if _, err := LogExists(tmpDir); err == nil {
		t.Error("LogExists(dir) expected error")
	}
}
