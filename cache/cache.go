// Package cache provides a small in-process key-value store with TTL
// expiry and FIFO eviction, plus an adapter that exposes it as a
// fiber.Storage for the built-in middleware, most notably the rate
// limiter.
package cache

import "time"

// Store is a byte-oriented key-value store with per-entry expiry.
type Store interface {
	// Read returns the value for key, or false when the key is absent
	// or expired.
	Read(key string) ([]byte, bool)

	// Write stores value under key. A positive ttl bounds the entry
	// lifetime; zero or negative falls back to the store default, and a
	// zero default keeps the entry until evicted.
	Write(key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(key string) error

	// Clear removes every entry.
	Clear() error

	// Len reports the number of entries, expired ones included until
	// the sweeper runs.
	Len() int

	// Close stops background work. The store must not be used after.
	Close() error
}

// Options tunes a store.
type Options struct {
	// TTL applies when Write receives no positive ttl. Zero keeps
	// entries until evicted or deleted.
	TTL time.Duration

	// MaxEntries caps the store; the oldest entries are evicted first.
	// Zero means unbounded.
	MaxEntries int

	// SweepInterval is how often expired entries are removed. Zero
	// disables the sweeper; expired entries then linger invisibly until
	// overwritten or evicted.
	SweepInterval time.Duration
}

// Option adjusts Options.
type Option func(*Options)

// WithTTL sets the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) { o.TTL = ttl }
}

// WithMaxEntries caps the store size.
func WithMaxEntries(n int) Option {
	return func(o *Options) { o.MaxEntries = n }
}

// WithSweepInterval sets how often expired entries are swept out.
func WithSweepInterval(interval time.Duration) Option {
	return func(o *Options) { o.SweepInterval = interval }
}

// DefaultOptions returns the defaults: no default TTL, unbounded size,
// a sweep every minute.
func DefaultOptions() Options {
	return Options{SweepInterval: time.Minute}
}

func applyOptions(opts ...Option) Options {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
