package database

import (
	"log/slog"

	"gorm.io/gorm"
)

// Driver abstracts one database engine for the Manager. Implementations
// shape the DSN, open the dialector, and run engine-specific setup and
// teardown.
type Driver interface {
	// Name identifies the engine: "sqlite", "postgres".
	Name() string

	// Open returns the GORM dialector for a prepared DSN.
	Open(dsn string) gorm.Dialector

	// ConfigureDSN folds driver options from cfg into the DSN before
	// the connection is opened.
	ConfigureDSN(dsn string, cfg *Config) string

	// AfterConnect runs engine setup once the connection exists, such
	// as SQLite pragmas or a Postgres search_path.
	AfterConnect(db *gorm.DB, cfg *Config, logger *slog.Logger) error

	// Close runs engine cleanup before the pool is torn down.
	Close(db *gorm.DB, logger *slog.Logger) error

	// SupportsCheckpoint reports whether Checkpoint does anything.
	SupportsCheckpoint() bool

	// Checkpoint forces a WAL checkpoint on engines that have one.
	Checkpoint(db *gorm.DB, mode string) error
}
