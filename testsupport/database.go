package testsupport

import (
	"log/slog"
	"os"
	"testing"

	"gorm.io/gorm"

	"github.com/gofu-framework/gofu/database"
	"github.com/gofu-framework/gofu/sqlite"
)

// DBOptions configures test database creation.
type DBOptions struct {
	// Models to auto-migrate.
	Models []any

	// Verbose logs every statement to stderr (default: silent).
	Verbose bool
}

// OpenDB creates a database manager over an in-memory SQLite database.
// The pool is capped at one connection so the database survives for the
// whole test; it is closed via t.Cleanup.
func OpenDB(t *testing.T, opts ...DBOptions) *database.Manager {
	t.Helper()

	var options DBOptions
	if len(opts) > 0 {
		options = opts[0]
	}

	cfg := database.DefaultConfig(":memory:")
	logger := DiscardLogger()
	if options.Verbose {
		cfg.LogQueries = true
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	manager := database.NewManager(sqlite.NewDriver(), cfg, logger)
	if _, err := manager.Connect(); err != nil {
		t.Fatalf("testsupport: open test database: %v", err)
	}

	if len(options.Models) > 0 {
		if err := manager.Migrate(database.NewAutoMigrator(options.Models...)); err != nil {
			t.Fatalf("testsupport: migrate models: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = manager.Close()
	})

	return manager
}

// DB is OpenDB returning the GORM session directly, for tests that
// never touch the manager.
func DB(t *testing.T, opts ...DBOptions) *gorm.DB {
	t.Helper()

	db, err := OpenDB(t, opts...).Connect()
	if err != nil {
		t.Fatalf("testsupport: connect test database: %v", err)
	}
	return db
}
