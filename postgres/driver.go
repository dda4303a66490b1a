// Package postgres provides the PostgreSQL database driver.
package postgres

import (
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gofu-framework/gofu/database"
)

// Driver implements database.Driver for PostgreSQL.
type Driver struct{}

// NewDriver creates a new PostgreSQL driver.
func NewDriver() *Driver {
	return &Driver{}
}

// Name returns "postgres".
func (d *Driver) Name() string {
	return "postgres"
}

// Open returns a GORM PostgreSQL dialector.
func (d *Driver) Open(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

// ConfigureDSN appends sslmode and timezone to URL-style DSNs. DSNs in
// key=value form are extended with spaces instead.
func (d *Driver) ConfigureDSN(dsn string, cfg *database.Config) string {
	var params []string
	if cfg.Postgres.SSLMode != "" {
		params = append(params, "sslmode="+cfg.Postgres.SSLMode)
	}
	if cfg.Postgres.Timezone != "" {
		params = append(params, "TimeZone="+cfg.Postgres.Timezone)
	}
	if len(params) == 0 {
		return dsn
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		return dsn + separator + strings.Join(params, "&")
	}
	return strings.TrimSpace(dsn + " " + strings.Join(params, " "))
}

// AfterConnect sets the schema search path when one is configured.
func (d *Driver) AfterConnect(db *gorm.DB, cfg *database.Config, logger *slog.Logger) error {
	if cfg.Postgres.SearchPath != "" {
		if err := db.Exec(fmt.Sprintf("SET search_path TO %s", cfg.Postgres.SearchPath)).Error; err != nil {
			logger.Error("failed to set search_path", slog.String("search_path", cfg.Postgres.SearchPath), slog.Any("error", err))
			return fmt.Errorf("postgres: set search_path: %w", err)
		}
	}
	return nil
}

// Close is a no-op for PostgreSQL.
func (d *Driver) Close(db *gorm.DB, logger *slog.Logger) error {
	return nil
}

// SupportsCheckpoint returns false for PostgreSQL.
func (d *Driver) SupportsCheckpoint() bool {
	return false
}

// Checkpoint is a no-op for PostgreSQL.
func (d *Driver) Checkpoint(db *gorm.DB, mode string) error {
	return nil
}

var _ database.Driver = (*Driver)(nil)
