package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/semaphore"

	"github.com/gofu-framework/gofu/logging"
)

// ConcurrencyLimiter bounds in-flight reads and writes separately.
// Useful in front of storage that tolerates many readers but few
// writers.
type ConcurrencyLimiter struct {
	reads   *semaphore.Weighted
	writes  *semaphore.Weighted
	timeout time.Duration
	logger  logging.Logger
}

// NewConcurrencyLimiter creates a limiter allowing readLimit concurrent
// reads and writeLimit concurrent writes. Acquire waits at most
// timeout before giving up.
func NewConcurrencyLimiter(readLimit, writeLimit int, timeout time.Duration, logger logging.Logger) *ConcurrencyLimiter {
	if readLimit <= 0 {
		readLimit = 1
	}
	if writeLimit <= 0 {
		writeLimit = 1
	}
	return &ConcurrencyLimiter{
		reads:   semaphore.NewWeighted(int64(readLimit)),
		writes:  semaphore.NewWeighted(int64(writeLimit)),
		timeout: timeout,
		logger:  logger,
	}
}

// AcquireRead takes a read slot, waiting until one frees up, the
// limiter timeout passes, or ctx is done.
func (l *ConcurrencyLimiter) AcquireRead(ctx context.Context) error {
	return l.acquire(ctx, l.reads)
}

// ReleaseRead returns a read slot.
func (l *ConcurrencyLimiter) ReleaseRead() {
	l.reads.Release(1)
}

// AcquireWrite takes a write slot, waiting until one frees up, the
// limiter timeout passes, or ctx is done.
func (l *ConcurrencyLimiter) AcquireWrite(ctx context.Context) error {
	return l.acquire(ctx, l.writes)
}

// ReleaseWrite returns a write slot.
func (l *ConcurrencyLimiter) ReleaseWrite() {
	l.writes.Release(1)
}

func (l *ConcurrencyLimiter) acquire(ctx context.Context, sem *semaphore.Weighted) error {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return sem.Acquire(ctx, 1)
}

// Limit creates a middleware that classifies requests by method: GET,
// HEAD, and OPTIONS take a read slot, everything else a write slot.
// Requests that cannot get a slot in time are answered 503.
func (l *ConcurrencyLimiter) Limit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			if err := l.AcquireRead(c.UserContext()); err != nil {
				return l.overloaded(c, "read")
			}
			defer l.ReleaseRead()
		default:
			if err := l.AcquireWrite(c.UserContext()); err != nil {
				return l.overloaded(c, "write")
			}
			defer l.ReleaseWrite()
		}
		return c.Next()
	}
}

func (l *ConcurrencyLimiter) overloaded(c *fiber.Ctx, kind string) error {
	if l.logger != nil {
		l.logger.Warn("concurrency limit reached",
			"kind", kind,
			"method", c.Method(),
			"path", c.Path(),
		)
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error":   "server_busy",
		"message": "Too many concurrent requests. Please retry.",
	})
}
