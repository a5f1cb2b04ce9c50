package cache

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/corexis/netkit"
)

type memoryEntry struct {
	data         []byte
	etag         string
	lastModified string
	createdAt    time.Time
	ttl          time.Duration
}

func (e memoryEntry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.createdAt) > e.ttl
}

func (e memoryEntry) toCacheEntry() netkit.CacheEntry {
	return netkit.CacheEntry{
		Data:         e.data,
		ETag:         e.etag,
		LastModified: e.lastModified,
		CreatedAt:    e.createdAt,
		TTL:          e.ttl,
	}
}

// Memory is an insertion-ordered, byte-bounded LRU cache tier. Ordering
// and eviction are driven by hashicorp/golang-lru/v2/simplelru, whose
// RemoveOldest gives the front-of-list eviction the byte-bounded put loop
// needs; byte accounting on top of it is netkit's own, since simplelru
// only bounds entry count.
type Memory struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[string, memoryEntry]
	size    int64
	maxSize int64
}

// NewMemory constructs a Memory cache capped at maxSize total bytes.
func NewMemory(maxSize int64) *Memory {
	m := &Memory{maxSize: maxSize}
	lru, _ := simplelru.NewLRU[string, memoryEntry](math.MaxInt, func(_ string, v memoryEntry) {
		m.size -= int64(len(v.data))
	})
	m.lru = lru
	return m
}

// Get returns bytes for key, evicting the entry in place if it has expired.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok, err := m.GetEntry(ctx, key)
	if !ok || err != nil {
		return nil, ok, err
	}
	return entry.Data, true, nil
}

// GetEntry returns the full cache record for key, including its ETag and
// Last-Modified validators, evicting the entry in place if it has expired.
func (m *Memory) GetEntry(_ context.Context, key string) (netkit.CacheEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lru.Get(key)
	if !ok {
		return netkit.CacheEntry{}, false, nil
	}
	if entry.expired(time.Now()) {
		m.lru.Remove(key)
		return netkit.CacheEntry{}, false, nil
	}
	return entry.toCacheEntry(), true, nil
}

// Put installs data for key, evicting least-recently-used entries until
// the new write fits within maxSize. A write that still cannot fit after
// draining every other entry returns CacheWriteFailed and is never
// partially committed.
func (m *Memory) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return m.PutEntry(ctx, key, netkit.CacheEntry{Data: data, TTL: ttl, CreatedAt: time.Now()})
}

// PutEntry installs the full cache record for key, preserving whatever
// CreatedAt the caller supplies (the zero value is treated as "now"), so a
// caller promoting an entry from a slower tier can carry over that tier's
// original TTL clock and validators instead of restarting them.
func (m *Memory) PutEntry(_ context.Context, key string, entry netkit.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lru.Peek(key); ok {
		// The eviction callback subtracts the old entry's bytes.
		m.lru.Remove(key)
	}

	newSize := int64(len(entry.Data))
	for m.size+newSize > m.maxSize && m.lru.Len() > 0 {
		m.lru.RemoveOldest()
	}
	if m.size+newSize > m.maxSize {
		return netkit.NewError(netkit.KindCacheWriteFailed, "entry exceeds memory cache capacity", nil)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	m.lru.Add(key, memoryEntry{
		data:         entry.Data,
		etag:         entry.ETag,
		lastModified: entry.LastModified,
		createdAt:    createdAt,
		ttl:          entry.TTL,
	})
	m.size += newSize
	return nil
}

// Remove deletes key, if present.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Remove(key)
	return nil
}

// Clear empties the cache.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Purge()
	m.size = 0
	return nil
}

// Contains reports whether key is present and unexpired.
func (m *Memory) Contains(ctx context.Context, key string) bool {
	_, ok, _ := m.Get(ctx, key)
	return ok
}

// Size returns total bytes currently held.
func (m *Memory) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

var _ netkit.Cache = (*Memory)(nil)
