package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

// FileTimeLayout is the timestamp prefix of match file names.
const FileTimeLayout = "20060102_150405"

// MatchWriter writes one file per match into Dir: the turn list as JSON and,
// when CSV is enabled, a per-turn summary next to it.
type MatchWriter struct {
	Dir       string
	CSV       bool
	Overwrite bool
	Logger    *zap.Logger
}

// NewMatchWriter returns a writer for dir that writes JSON only.
func NewMatchWriter(dir string, logger *zap.Logger) *MatchWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchWriter{Dir: dir, Overwrite: true, Logger: logger}
}

// FileName returns the base name, without extension, of a match's files.
func FileName(m *recorder.MatchRecord) string {
	return m.StartTime.UTC().Format(FileTimeLayout) + "_" + m.ID
}

// WriteMatch implements recorder.MatchSink.
func (w *MatchWriter) WriteMatch(_ context.Context, m *recorder.MatchRecord) error {
	if len(m.Turns) == 0 {
		return recorder.ErrNoTurns
	}
	base := filepath.Join(w.Dir, FileName(m))

	path := base + ".json"
	if err := writeFile(path, FormatJSON, m.Turns, w.Overwrite); err != nil {
		return err
	}
	w.logger().Info("match_file_written",
		zap.String("path", path),
		zap.Int("turns", len(m.Turns)))

	if w.CSV {
		if err := writeFile(base+".csv", FormatCSV, TurnRows(m.Turns), w.Overwrite); err != nil {
			return err
		}
	}
	return nil
}

func (w *MatchWriter) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

// LoadTurns reads a turn list written by MatchWriter.
func LoadTurns(path string) ([]*recorder.TurnRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read match file: %w", err)
	}
	var turns []*recorder.TurnRecord
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("failed to parse match file %s: %w", path, err)
	}
	return turns, nil
}
