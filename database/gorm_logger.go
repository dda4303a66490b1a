package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// gormLogger bridges GORM's logging onto slog. Failures log at error,
// slow queries at warn, and everything else at debug when query logging
// is enabled.
type gormLogger struct {
	logger        *slog.Logger
	logLevel      logger.LogLevel
	slowThreshold time.Duration
	logQueries    bool
}

// NewGormLogger adapts an slog.Logger to GORM's logger.Interface using
// the thresholds from cfg. A nil cfg keeps the defaults.
func NewGormLogger(l *slog.Logger, cfg *Config) logger.Interface {
	gl := &gormLogger{
		logger:        l,
		logLevel:      logger.Warn,
		slowThreshold: defaultSlowThreshold,
	}
	if cfg != nil {
		if cfg.SlowQueryThreshold > 0 {
			gl.slowThreshold = cfg.SlowQueryThreshold
		}
		if cfg.LogQueries {
			gl.logLevel = logger.Info
			gl.logQueries = true
		}
	}
	return gl
}

// LogMode returns a copy at the given level.
func (gl *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *gl
	clone.logLevel = level
	return &clone
}

func (gl *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if gl.logLevel >= logger.Info {
		gl.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (gl *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if gl.logLevel >= logger.Warn {
		gl.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (gl *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if gl.logLevel >= logger.Error {
		gl.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace logs one executed statement with its duration.
func (gl *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if gl.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	attrs := []any{
		slog.Float64("duration_ms", float64(elapsed.Nanoseconds())/1e6),
		slog.Int64("rows", rows),
		slog.String("sql", sql),
	}

	switch {
	case err != nil && gl.logLevel >= logger.Error && !errors.Is(err, logger.ErrRecordNotFound):
		gl.logger.ErrorContext(ctx, "query failed", append(attrs, slog.Any("error", err))...)
	case elapsed > gl.slowThreshold && gl.logLevel >= logger.Warn:
		gl.logger.WarnContext(ctx, "slow query", attrs...)
	case gl.logQueries:
		gl.logger.DebugContext(ctx, "query", attrs...)
	}
}
