package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"sjsage522/reviewworker/services/metrics"

	"github.com/allegro/bigcache/v3"
)

// ErrCacheMiss is returned by every CacheService when a key is absent or expired
var ErrCacheMiss = errors.New("cache: miss")

// MemoryService implements CacheService in process using bigcache. Entries
// carry their own deadline so keys with different expirations can share one
// cache; maxTTL bounds how long bigcache keeps any entry.
type MemoryService struct {
	cache *bigcache.BigCache
	now   func() time.Time
}

// NewMemoryService creates an in-process cache
func NewMemoryService(ctx context.Context, maxTTL time.Duration) (*MemoryService, error) {
	if maxTTL <= 0 {
		return nil, fmt.Errorf("cache: max TTL must be positive, got %v", maxTTL)
	}
	config := bigcache.DefaultConfig(maxTTL)
	config.Verbose = false

	c, err := bigcache.New(ctx, config)
	if err != nil {
		return nil, err
	}
	return &MemoryService{cache: c, now: time.Now}, nil
}

// Get retrieves a value that has not passed its deadline
func (m *MemoryService) Get(key string) ([]byte, error) {
	entry, err := m.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		metrics.ObserveCache("memory", "miss")
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	if len(entry) < 8 {
		metrics.ObserveCache("memory", "miss")
		return nil, ErrCacheMiss
	}

	deadline := time.Unix(0, int64(binary.BigEndian.Uint64(entry[:8])))
	if !m.now().Before(deadline) {
		_ = m.cache.Delete(key)
		metrics.ObserveCache("memory", "miss")
		return nil, ErrCacheMiss
	}
	metrics.ObserveCache("memory", "hit")
	return entry[8:], nil
}

// Set stores a value until now+expiration
func (m *MemoryService) Set(key string, value []byte, expiration time.Duration) error {
	entry := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(entry[:8], uint64(m.now().Add(expiration).UnixNano()))
	copy(entry[8:], value)
	metrics.ObserveCache("memory", "set")
	return m.cache.Set(key, entry)
}

// Delete removes a value
func (m *MemoryService) Delete(key string) error {
	err := m.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Close releases the cache
func (m *MemoryService) Close() error {
	return m.cache.Close()
}
