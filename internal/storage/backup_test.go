package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

func TestBackup_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := Open(DefaultConfig(filepath.Join(dir, "matches.db")))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := NewMatchStore(db)
	start := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	require.NoError(t, store.WriteMatch(ctx, testMatch("m1", start, recorder.OutcomeWin)))

	path, err := db.Backup(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, db.BackupDir(), filepath.Dir(path))
	require.NoError(t, VerifyBackup(ctx, path))

	// The copy is a working database.
	copyDB, err := Open(&Config{Path: path, MaxOpenConns: 1, BusyTimeout: time.Second, JournalMode: "DELETE", Synchronous: "NORMAL"})
	require.NoError(t, err)
	defer func() { _ = copyDB.Close() }()
	got, err := NewMatchStore(copyDB).GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, got.Turns, 1)

	backups, err := ListBackups(db.BackupDir())
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, path, backups[0].Path)
	assert.Len(t, backups[0].Checksum, 64)
}

func TestBackup_InMemory(t *testing.T) {
	db, err := Open(DefaultConfig(":memory:"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Backup(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestVerifyBackup_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.db")
	require.NoError(t, os.WriteFile(path, []byte("not sqlite"), 0o644))
	assert.Error(t, VerifyBackup(context.Background(), path))
}

func TestListAndPruneBackups(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"matches_20250101_000000.db", "matches_20250301_000000.db", "matches_20250201_000000.db", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}

	backups, err := ListBackups(dir)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, "matches_20250301_000000.db", backups[0].Name)
	assert.Equal(t, "matches_20250101_000000.db", backups[2].Name)

	removed, err := PruneBackups(dir, 1)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	backups, err = ListBackups(dir)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "matches_20250301_000000.db", backups[0].Name)

	missing, err := ListBackups(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
