package cache

import (
	"sync"
	"time"
)

// Memory is an in-memory Store with FIFO eviction. Safe for concurrent
// use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	opts    Options

	stop chan struct{}
	once sync.Once
}

type entry struct {
	value     []byte
	expiresAt time.Time // zero means never
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemory creates an in-memory store. When the options enable a sweep
// interval, a background goroutine removes expired entries until Close.
func NewMemory(opts ...Option) *Memory {
	options := applyOptions(opts...)

	m := &Memory{
		entries: make(map[string]*entry),
		opts:    options,
		stop:    make(chan struct{}),
	}
	if options.SweepInterval > 0 {
		go m.sweepLoop()
	}
	return m
}

// Read returns the value for key, or false when absent or expired.
func (m *Memory) Read(key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, false
	}

	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true
}

// Write stores a copy of value under key; callers may reuse the buffer.
func (m *Memory) Write(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.opts.TTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.entries[key]
	m.entries[key] = &entry{value: stored, expiresAt: expiresAt}
	if !exists {
		m.order = append(m.order, key)
	}
	m.evictLocked()
	return nil
}

// Delete removes a key.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	m.dropOrderLocked(key)
	return nil
}

// Clear removes every entry.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*entry)
	m.order = m.order[:0]
	return nil
}

// Len reports the number of entries, expired ones included until the
// sweeper runs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the sweeper. Idempotent.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

// evictLocked drops the oldest entries while over the cap.
func (m *Memory) evictLocked() {
	if m.opts.MaxEntries <= 0 {
		return
	}
	for len(m.entries) > m.opts.MaxEntries && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
}

func (m *Memory) dropOrderLocked(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func (m *Memory) sweepLoop() {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

// sweep removes every expired entry.
func (m *Memory) sweep() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			m.dropOrderLocked(key)
		}
	}
}

var _ Store = (*Memory)(nil)
