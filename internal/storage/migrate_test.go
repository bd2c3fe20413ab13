package storage

import (
	"path/filepath"
	"testing"
)

func TestMigrationManager_UpDown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-test.db")

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("failed to create migration manager: %v", err)
	}
	defer mgr.Close()

	version, _, err := mgr.Version()
	if err != nil {
		t.Fatalf("failed to get version: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 on a fresh database, got %d", version)
	}

	if err := mgr.Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	// A second run is a no-op.
	if err := mgr.Up(); err != nil {
		t.Fatalf("second Up failed: %v", err)
	}

	version, dirty, err := mgr.Version()
	if err != nil {
		t.Fatalf("failed to get version: %v", err)
	}
	if dirty {
		t.Error("database is dirty after migrations")
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}

	if err := mgr.Down(); err != nil {
		t.Fatalf("failed to roll back: %v", err)
	}
}

func TestOpen_AutoMigrateIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "auto.db")
	for i := 0; i < 2; i++ {
		db, err := Open(DefaultConfig(dbPath))
		if err != nil {
			t.Fatalf("open %d failed: %v", i, err)
		}
		for _, table := range []string{"matches", "turns", "minions", "shop_events"} {
			var name string
			err := db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
			if err != nil {
				t.Errorf("table %s missing: %v", table, err)
			}
		}
		db.Close()
	}
}
