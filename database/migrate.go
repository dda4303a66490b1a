package database

import (
	"gorm.io/gorm"
)

// Migrator runs schema migrations against a live connection.
type Migrator interface {
	Migrate(db *gorm.DB) error
}

// AutoMigrator uses GORM's AutoMigrate for schema-from-models setups.
type AutoMigrator struct {
	models []any
}

// NewAutoMigrator creates a migrator that auto-migrates the given
// models in order.
func NewAutoMigrator(models ...any) *AutoMigrator {
	return &AutoMigrator{models: models}
}

// Migrate runs GORM AutoMigrate on all registered models.
func (m *AutoMigrator) Migrate(db *gorm.DB) error {
	if len(m.models) == 0 {
		return nil
	}
	return db.AutoMigrate(m.models...)
}

// MigratorFunc adapts a function to the Migrator interface for custom
// migration steps.
type MigratorFunc func(db *gorm.DB) error

// Migrate implements Migrator.
func (f MigratorFunc) Migrate(db *gorm.DB) error { return f(db) }
