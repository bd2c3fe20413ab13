package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
	"github.com/ramonehamilton/BG-Companion/internal/output"
)

func exportFixture() *recorder.MatchRecord {
	start := time.Date(2025, 3, 1, 20, 4, 5, 0, time.UTC)
	return &recorder.MatchRecord{
		ID:        "m1",
		StartTime: start,
		Turns: []*recorder.TurnRecord{
			{TurnNumber: 1, Timestamp: start, Outcome: recorder.OutcomeWin, DamageToOpponent: 3},
		},
	}
}

func TestExportMatchFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "m1.json")
	if err := exportMatchFile(jsonPath, output.FormatJSON, exportFixture()); err != nil {
		t.Fatalf("JSON export failed: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var got recorder.MatchRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}
	if got.ID != "m1" || len(got.Turns) != 1 {
		t.Errorf("Unexpected export: %+v", got)
	}

	csvPath := filepath.Join(dir, "m1.csv")
	if err := exportMatchFile(csvPath, output.FormatCSV, exportFixture()); err != nil {
		t.Fatalf("CSV export failed: %v", err)
	}
	data, err = os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "1,2025-03-01T20:04:05Z,Win") {
		t.Errorf("Unexpected CSV export: %q", lines)
	}
}

func TestExportMatchFile_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-dir", "m1.json")
	if err := exportMatchFile(missing, output.FormatJSON, exportFixture()); err == nil {
		t.Error("Expected an error for an unwritable path")
	}

	// Encode errors are returned, not masked by the close.
	path := filepath.Join(t.TempDir(), "empty.csv")
	empty := &recorder.MatchRecord{ID: "m2"}
	if err := exportMatchFile(path, output.FormatCSV, empty); err == nil {
		t.Error("Expected an error exporting a match without turns as CSV")
	}
}

func TestExportMatch_Stdout(t *testing.T) {
	var b bytes.Buffer
	if err := exportMatch(&b, output.FormatJSON, exportFixture()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), `"m1"`) {
		t.Errorf("Expected match id in output, got %s", b.String())
	}
}
