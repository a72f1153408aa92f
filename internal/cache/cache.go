package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock is injected so tests control expiry.
type Clock func() time.Time

// Backend stores serialized results with a TTL. A miss is (nil, false, nil);
// backends never return stale values.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ResultCache is the shared query-result cache. Concurrent callers of the
// same key collapse into one recomputation; recomputation is the dominant
// cost here (paginated scans plus per-rider lookups), so the stampede
// protection matters more than the cache itself.
type ResultCache struct {
	backend Backend
	group   singleflight.Group
}

func New(backend Backend) *ResultCache {
	return &ResultCache{backend: backend}
}

// Do returns the cached value for key into out, or computes, stores, and
// returns it. A backend read failure falls through to computation; a backend
// write failure is ignored (the computed value is still returned).
func (c *ResultCache) Do(ctx context.Context, key string, ttl time.Duration, out any, compute func() (any, error)) error {
	if raw, ok, err := c.backend.Get(ctx, key); err == nil && ok {
		return json.Unmarshal(raw, out)
	}

	raw, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check inside the flight: a concurrent caller may have just
		// stored the value.
		if raw, ok, err := c.backend.Get(ctx, key); err == nil && ok {
			return raw, nil
		}
		value, err := compute()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		_ = c.backend.Set(ctx, key, raw, ttl)
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), out)
}

type memoryEntry struct {
	value []byte
	at    time.Time
	ttl   time.Duration
}

// MemoryBackend is the in-process backend. Expired entries are overwritten
// on the next Set for their key; the key space here is bounded by the query
// parameter combinations, so there is no further eviction.
type MemoryBackend struct {
	mu      sync.Mutex
	now     Clock
	entries map[string]memoryEntry
}

func NewMemoryBackend(now Clock) *MemoryBackend {
	if now == nil {
		now = time.Now
	}
	return &MemoryBackend{now: now, entries: map[string]memoryEntry{}}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || m.now().Sub(e.at) >= e.ttl {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, at: m.now(), ttl: ttl}
	return nil
}
