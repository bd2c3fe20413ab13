package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// BackupInfo describes a backup file.
type BackupInfo struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`
	Checksum string    `json:"checksum"`
}

// BackupDir returns the default backup directory, a "backups" directory next
// to the database file.
func (db *DB) BackupDir() string {
	return filepath.Join(filepath.Dir(db.path), "backups")
}

// Backup copies the database into dir (BackupDir when empty) with VACUUM
// INTO, which needs no exclusive lock, and verifies the copy. It returns the
// backup path.
func (db *DB) Backup(ctx context.Context, dir string) (string, error) {
	if db.path == ":memory:" {
		return "", fmt.Errorf("cannot back up an in-memory database")
	}
	if dir == "" {
		dir = db.BackupDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(dir, "matches_"+time.Now().Format("20060102_150405")+".db")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("backup %s already exists", path)
	}
	if _, err := db.conn.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}
	if err := VerifyBackup(ctx, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("backup verification failed: %w", err)
	}
	return path, nil
}

// VerifyBackup checks that path is an intact database holding the matches
// table.
func VerifyBackup(ctx context.Context, path string) error {
	conn, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var result string
	if err := conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to check backup: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}

	var n int
	if err := conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'matches'").Scan(&n); err != nil {
		return fmt.Errorf("failed to query backup: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("backup has no matches table")
	}
	return nil
}

// ListBackups returns the backups in dir, newest first.
func ListBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		checksum, err := checksumFile(path)
		if err != nil {
			checksum = "unknown"
		}
		backups = append(backups, BackupInfo{
			Path:     path,
			Name:     entry.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Checksum: checksum,
		})
	}
	// Names carry the timestamp, so they sort chronologically.
	slices.SortFunc(backups, func(a, b BackupInfo) int { return strings.Compare(b.Name, a.Name) })
	return backups, nil
}

// PruneBackups removes all but the newest keep backups in dir and returns
// the removed paths.
func PruneBackups(dir string, keep int) ([]string, error) {
	backups, err := ListBackups(dir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, b := range backups[min(max(keep, 0), len(backups)):] {
		if err := os.Remove(b.Path); err != nil {
			return removed, fmt.Errorf("failed to remove backup %s: %w", b.Name, err)
		}
		removed = append(removed, b.Path)
	}
	return removed, nil
}

func checksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
