package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Manager owns the shared GORM connection, opening it once on first
// use and closing it through the driver on shutdown.
type Manager struct {
	driver  Driver
	cfg     *Config
	logger  *slog.Logger
	db      *gorm.DB
	dbOnce  sync.Once
	dbMutex sync.Mutex
}

// NewManager creates a manager for the given driver and config. Nothing
// is opened until Connect.
func NewManager(driver Driver, cfg *Config, logger *slog.Logger) *Manager {
	if cfg == nil {
		cfg = DefaultConfig("")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Manager{
		driver: driver,
		cfg:    cfg,
		logger: logger,
	}
}

// Connect returns a GORM session, opening the connection on first call.
func (m *Manager) Connect() (*gorm.DB, error) {
	var err error
	m.dbOnce.Do(func() {
		err = m.open()
	})
	if err != nil {
		return nil, err
	}

	m.dbMutex.Lock()
	db := m.db
	m.dbMutex.Unlock()
	if db == nil {
		return nil, fmt.Errorf("database: connection closed")
	}
	return db.Session(&gorm.Session{}), nil
}

// GetConnection returns a session or nil when the connection cannot be
// established. Prefer Connect when the error matters.
func (m *Manager) GetConnection() *gorm.DB {
	db, err := m.Connect()
	if err != nil {
		m.logger.Error("failed to get database connection", slog.Any("error", err))
		return nil
	}
	return db
}

// Ping opens the connection if needed and verifies it is alive.
func (m *Manager) Ping(ctx context.Context) error {
	db, err := m.Connect()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: access sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: ping: %w", err)
	}
	return nil
}

// Migrate connects and runs the migrator against the live connection.
func (m *Manager) Migrate(migrator Migrator) error {
	db, err := m.Connect()
	if err != nil {
		return err
	}
	if err := migrator.Migrate(db); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}

// Write runs f inside a write transaction with busy-retry handling.
func (m *Manager) Write(f func(tx *gorm.DB) error) error {
	db, err := m.Connect()
	if err != nil {
		return err
	}
	return PerformWrite(m.logger, db, f)
}

// CheckpointWAL forces a WAL checkpoint on drivers that support it and
// is a no-op elsewhere.
func (m *Manager) CheckpointWAL(mode string) error {
	if !m.driver.SupportsCheckpoint() {
		return nil
	}

	conn, err := m.Connect()
	if err != nil {
		return err
	}
	return m.driver.Checkpoint(conn, mode)
}

// Driver returns the underlying driver.
func (m *Manager) Driver() Driver {
	return m.driver
}

// Close tears the connection down through the driver. The manager can
// be reused; the next Connect reopens.
func (m *Manager) Close() error {
	m.dbMutex.Lock()
	defer m.dbMutex.Unlock()

	if m.db == nil {
		return nil
	}

	if err := m.driver.Close(m.db, m.logger); err != nil {
		m.logger.Warn("driver cleanup error", slog.Any("error", err))
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("database: access sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("database: close: %w", err)
	}

	m.db = nil
	m.dbOnce = sync.Once{}
	m.logger.Debug("database connection closed", slog.String("driver", m.driver.Name()))
	return nil
}

func (m *Manager) open() error {
	m.dbMutex.Lock()
	defer m.dbMutex.Unlock()

	if m.db != nil {
		return nil
	}

	dsn := m.driver.ConfigureDSN(m.cfg.DSN, m.cfg)

	gormLogger := NewGormLogger(m.logger.With(slog.String("logger", "gorm")), m.cfg)

	db, err := gorm.Open(m.driver.Open(dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("database: open: %w", err)
	}

	if err := m.driver.AfterConnect(db, m.cfg, m.logger); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: access sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(m.cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(m.cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(m.cfg.ConnMaxLifetime)

	m.logger.Info("database connection established",
		slog.String("driver", m.driver.Name()),
		slog.Int("max_open", m.cfg.MaxOpenConns),
		slog.Int("max_idle", m.cfg.MaxIdleConns),
	)

	m.db = db
	return nil
}
