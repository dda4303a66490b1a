// Package database manages the GORM connection an application's beans
// share. Engine-specific behavior (DSN shaping, pragmas, checkpoints)
// lives behind the Driver interface so the manager stays engine
// agnostic; the sqlite and postgres packages provide the two built-in
// drivers.
package database

import "time"

// Config provides database configuration.
type Config struct {
	// DSN is the connection string. For SQLite a file path or
	// ":memory:"; for PostgreSQL a URL or key=value DSN.
	DSN string

	// MaxOpenConns caps open connections. SQLite wants 1, server
	// databases considerably more.
	MaxOpenConns int

	// MaxIdleConns caps idle pooled connections.
	MaxIdleConns int

	// ConnMaxLifetime recycles connections older than this.
	ConnMaxLifetime time.Duration

	// SlowQueryThreshold marks queries slower than this in the log.
	// Zero keeps the 200ms default.
	SlowQueryThreshold time.Duration

	// LogQueries logs every statement at debug level, not only slow
	// ones and failures.
	LogQueries bool

	// SQLite-specific options, ignored by other drivers.
	SQLite SQLiteOptions

	// Postgres-specific options, ignored by other drivers.
	Postgres PostgresOptions
}

// SQLiteOptions contains SQLite-specific configuration.
type SQLiteOptions struct {
	// BusyTimeout in milliseconds. Default: 5000.
	BusyTimeout int

	// EnableWAL enables write-ahead logging. Default: true.
	EnableWAL bool

	// TxImmediate opens write transactions with an immediate lock,
	// preventing lock-upgrade deadlocks under concurrent writers.
	TxImmediate bool
}

// PostgresOptions contains PostgreSQL-specific configuration.
type PostgresOptions struct {
	// SSLMode for connection security. Default: "prefer".
	SSLMode string

	// Timezone for the connection. Default: "UTC".
	Timezone string

	// SearchPath sets the schema search path when non-empty.
	SearchPath string
}

// DefaultConfig returns conservative defaults suited to SQLite. Server
// databases should raise the pool limits.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 10 * time.Minute,
		SQLite: SQLiteOptions{
			BusyTimeout: 5000,
			EnableWAL:   true,
			TxImmediate: true,
		},
		Postgres: PostgresOptions{
			SSLMode:  "prefer",
			Timezone: "UTC",
		},
	}
}
