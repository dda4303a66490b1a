package sqlite

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofu-framework/gofu/database"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDriver_ConfigureDSN(t *testing.T) {
	d := NewDriver()

	t.Run("appends immediate txlock when enabled", func(t *testing.T) {
		cfg := database.DefaultConfig("app.db")

		dsn := d.ConfigureDSN("app.db", cfg)
		if dsn != "app.db?_txlock=immediate" {
			t.Errorf("expected immediate txlock in DSN, got %q", dsn)
		}
	})

	t.Run("leaves DSN alone when disabled", func(t *testing.T) {
		cfg := database.DefaultConfig("app.db")
		cfg.SQLite.TxImmediate = false

		dsn := d.ConfigureDSN("app.db", cfg)
		if dsn != "app.db" {
			t.Errorf("expected unchanged DSN, got %q", dsn)
		}
	})
}

func TestDriver_AfterConnect(t *testing.T) {
	t.Run("applies WAL and busy timeout pragmas", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "pragmas.db")
		cfg := database.DefaultConfig(dbPath)

		m := database.NewManager(NewDriver(), cfg, testLogger())
		db, err := m.Connect()
		if err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		defer m.Close()

		var journalMode string
		if err := db.Raw("PRAGMA journal_mode").Scan(&journalMode).Error; err != nil {
			t.Fatalf("reading journal_mode: %v", err)
		}
		if journalMode != "wal" {
			t.Errorf("expected journal_mode wal, got %q", journalMode)
		}

		var busyTimeout int
		if err := db.Raw("PRAGMA busy_timeout").Scan(&busyTimeout).Error; err != nil {
			t.Fatalf("reading busy_timeout: %v", err)
		}
		if busyTimeout != 5000 {
			t.Errorf("expected busy_timeout 5000, got %d", busyTimeout)
		}
	})

	t.Run("skips WAL when disabled", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nowal.db")
		cfg := database.DefaultConfig(dbPath)
		cfg.SQLite.EnableWAL = false

		m := database.NewManager(NewDriver(), cfg, testLogger())
		db, err := m.Connect()
		if err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		defer m.Close()

		var journalMode string
		if err := db.Raw("PRAGMA journal_mode").Scan(&journalMode).Error; err != nil {
			t.Fatalf("reading journal_mode: %v", err)
		}
		if journalMode == "wal" {
			t.Error("expected journal_mode to stay at the default, got wal")
		}
	})
}

func TestDriver_Checkpoint(t *testing.T) {
	t.Run("checkpoints a WAL database", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "wal_test.db")
		cfg := database.DefaultConfig(dbPath)

		m := database.NewManager(NewDriver(), cfg, testLogger())
		if _, err := m.Connect(); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		defer m.Close()

		if err := m.CheckpointWAL("PASSIVE"); err != nil {
			t.Errorf("CheckpointWAL failed: %v", err)
		}
	})
}

func TestDriver_CreatesDatabaseFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "created.db")
	cfg := database.DefaultConfig(dbPath)

	m := database.NewManager(NewDriver(), cfg, testLogger())
	if _, err := m.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer m.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected database file to be created")
	}
}

func TestDriver_Metadata(t *testing.T) {
	d := NewDriver()

	if d.Name() != "sqlite" {
		t.Errorf("expected name sqlite, got %q", d.Name())
	}
	if !d.SupportsCheckpoint() {
		t.Error("expected SupportsCheckpoint to be true")
	}
}
