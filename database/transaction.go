package database

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

// writeMutex serializes writes when app-level queuing is selected.
var writeMutex sync.Mutex

// TransactionConfig controls retry and queuing behavior for writes.
type TransactionConfig struct {
	// UseNativeQueuing relies on the engine's own lock waiting (SQLite
	// busy_timeout plus immediate transactions). When false, writes are
	// serialized behind an application mutex instead.
	UseNativeQueuing bool

	// MaxRetries bounds attempts on busy errors.
	MaxRetries int

	// BaseDelay is the first retry delay; backoff doubles it per
	// attempt up to MaxDelay, with jitter.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultTransactionConfig returns the retry settings writes use unless
// overridden.
func DefaultTransactionConfig() TransactionConfig {
	return TransactionConfig{
		UseNativeQueuing: true,
		MaxRetries:       10,
		BaseDelay:        100 * time.Millisecond,
		MaxDelay:         5 * time.Second,
	}
}

// PerformWrite runs f inside a write transaction, retrying busy errors
// with exponential backoff. Rollback on failure, commit on success.
func PerformWrite(logger *slog.Logger, db *gorm.DB, f func(tx *gorm.DB) error) error {
	return PerformWriteWithConfig(logger, db, f, DefaultTransactionConfig())
}

// PerformWriteWithConfig is PerformWrite with custom retry settings.
func PerformWriteWithConfig(logger *slog.Logger, db *gorm.DB, f func(tx *gorm.DB) error, cfg TransactionConfig) error {
	var err error
	for i := 0; i < cfg.MaxRetries; i++ {
		if i > 0 {
			delay := retryDelay(i, cfg.BaseDelay, cfg.MaxDelay)
			logger.Info("retrying write transaction",
				slog.Int("attempt", i+1),
				slog.Duration("delay", delay),
				slog.Any("error", err))
			time.Sleep(delay)
		}

		var retry bool
		err, retry = attemptWrite(logger, db, f, cfg.UseNativeQueuing)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
	}
	return fmt.Errorf("write transaction failed after %d retries: %w", cfg.MaxRetries, err)
}

// attemptWrite runs one transaction attempt. The retry result is true
// only for busy errors worth another attempt.
func attemptWrite(logger *slog.Logger, db *gorm.DB, f func(tx *gorm.DB) error, native bool) (err error, retry bool) {
	if !native {
		writeMutex.Lock()
		defer writeMutex.Unlock()
	}

	tx := db.Session(&gorm.Session{SkipDefaultTransaction: true}).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error), false
	}

	if err := f(tx); err != nil {
		tx.Rollback()
		if isBusyError(err) {
			logger.Debug("write hit busy database", slog.Any("error", err))
			return err, true
		}
		return err, false
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		if isBusyError(err) {
			return err, true
		}
		return fmt.Errorf("commit transaction: %w", err), false
	}
	return nil, false
}

// retryDelay computes exponential backoff with 20% jitter.
func retryDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
	if delay > maxDelay {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Float64() * 0.2 * float64(delay))
	return delay + jitter
}

// isBusyError matches engine lock contention errors by message, which
// is the only portable signal the drivers expose.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database is busy") ||
		strings.Contains(msg, "locked") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "SQL statements in progress")
}
