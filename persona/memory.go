package persona

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/rankgate/rankgate/transport"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

const (
	// defaultCacheCapacity bounds the in-process name cache. Leaderboards
	// cap out at a few thousand visible entries, so this is generous.
	defaultCacheCapacity = 65536

	// cacheShards spreads lock contention across the cache.
	cacheShards = 16

	// evictionPercentage is the share of a shard evicted when capacity is
	// exceeded.
	evictionPercentage = 10
)

// MemoryStore implements Store with an in-process sturdyc cache.
// This is the default backend, suitable for single-instance deployments.
// Entries expire after the configured TTL; data is lost on restart.
type MemoryStore struct {
	cache *sturdyc.Client[string]

	mu     sync.RWMutex
	closed bool
}

// NewMemoryStore creates an in-process name cache. If capacity is zero the
// default is used.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &MemoryStore{
		cache: sturdyc.New[string](capacity, cacheShards, ttl, evictionPercentage),
	}
}

func cacheKey(id transport.SteamID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Get returns the cached name for id, or ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, id transport.SteamID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrStoreClosed
	}

	name, ok := m.cache.Get(cacheKey(id))
	if !ok || !Usable(name) {
		return "", ErrNotFound
	}
	return name, nil
}

// GetMultiple returns the cached names for the given ids.
func (m *MemoryStore) GetMultiple(ctx context.Context, ids []transport.SteamID) (map[transport.SteamID]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	result := make(map[transport.SteamID]string, len(ids))
	for _, id := range ids {
		if name, ok := m.cache.Get(cacheKey(id)); ok && Usable(name) {
			result[id] = name
		}
	}
	return result, nil
}

// Set stores or replaces the name for id.
func (m *MemoryStore) Set(ctx context.Context, id transport.SteamID, name string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.cache.Set(cacheKey(id), name)
	return nil
}

// SetMultiple stores or replaces names for a batch of ids.
func (m *MemoryStore) SetMultiple(ctx context.Context, names map[transport.SteamID]string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrStoreClosed
	}

	for id, name := range names {
		m.cache.Set(cacheKey(id), name)
	}
	return nil
}

// Close marks the store closed. Subsequent operations fail with
// ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
