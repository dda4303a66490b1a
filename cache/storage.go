package cache

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Storage adapts a Store to fiber.Storage so the built-in middleware
// can keep its state in it, for example
// middleware.RateLimiter(middleware.WithStorage(cache.NewStorage(store))).
type Storage struct {
	store Store
}

// NewStorage wraps a store as a fiber.Storage.
func NewStorage(store Store) *Storage {
	return &Storage{store: store}
}

// Get returns the value for key, nil when missing. Never errors.
func (s *Storage) Get(key string) ([]byte, error) {
	value, ok := s.store.Read(key)
	if !ok {
		return nil, nil
	}
	return value, nil
}

// Set stores value under key; exp zero keeps it until evicted.
func (s *Storage) Set(key string, value []byte, exp time.Duration) error {
	return s.store.Write(key, value, exp)
}

// Delete removes a key.
func (s *Storage) Delete(key string) error {
	return s.store.Delete(key)
}

// Reset removes every key.
func (s *Storage) Reset() error {
	return s.store.Clear()
}

// Close stops the underlying store.
func (s *Storage) Close() error {
	return s.store.Close()
}

var _ fiber.Storage = (*Storage)(nil)
