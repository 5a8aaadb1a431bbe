package cache

import (
	"context"
	"sync"
	"time"
)

// Cache stores opaque values under string keys with an expiry
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Options configures the in-memory cache
type Options struct {
	MaxItems        int
	CleanupInterval time.Duration
}

// item represents a cached item with expiration
type item struct {
	value      []byte
	expiration int64
}

func (i item) expired(now int64) bool {
	return i.expiration > 0 && now > i.expiration
}

// Memory is a thread-safe in-memory cache with expiration
type Memory struct {
	items    map[string]item
	mu       sync.RWMutex
	maxItems int
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates an in-memory cache and starts its cleanup loop when an interval is set
func NewMemory(opts Options) *Memory {
	m := &Memory{
		items:    make(map[string]item),
		maxItems: opts.MaxItems,
		stop:     make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go m.cleanupLoop(opts.CleanupInterval)
	}

	return m
}

// Get retrieves an item from the cache
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, found := m.items[key]
	if !found || it.expired(time.Now().UnixNano()) {
		return nil, false, nil
	}
	return it.value, true, nil
}

// Set adds an item to the cache; a zero ttl never expires
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && m.maxItems > 0 && len(m.items) >= m.maxItems {
		m.evictOldest()
	}

	m.items[key] = item{value: value, expiration: exp}
	return nil
}

// Delete removes an item from the cache
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Count returns the number of items in the cache (including expired items)
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Close stops the cleanup loop
func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memory) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.deleteExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UnixNano()
	for k, v := range m.items {
		if v.expired(now) {
			delete(m.items, k)
		}
	}
}

// evictOldest removes the item closest to expiry; items without expiry go last
func (m *Memory) evictOldest() {
	var oldestKey string
	var oldest int64
	found := false

	for k, v := range m.items {
		if v.expiration == 0 {
			if !found {
				oldestKey = k
			}
			continue
		}
		if !found || v.expiration < oldest {
			oldestKey = k
			oldest = v.expiration
			found = true
		}
	}

	if oldestKey != "" {
		delete(m.items, oldestKey)
	}
}
