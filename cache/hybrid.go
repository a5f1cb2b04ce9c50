package cache

import (
	"context"
	"time"

	"github.com/corexis/netkit"
)

// Hybrid composes a Memory and a Disk tier: reads check memory first,
// promoting disk hits back into memory; writes go through both tiers;
// removal and clear propagate to both.
type Hybrid struct {
	memory *Memory
	disk   *Disk
}

// NewHybrid composes an already-constructed Memory and Disk tier.
func NewHybrid(memory *Memory, disk *Disk) *Hybrid {
	return &Hybrid{memory: memory, disk: disk}
}

// Get checks memory first; on a disk hit it promotes the record back into
// memory, carrying over the disk tier's actual TTL, original creation
// time, and ETag/Last-Modified validators so the promoted entry expires at
// the same instant it would have on disk, never later.
func (h *Hybrid) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok, err := h.GetEntry(ctx, key)
	if !ok || err != nil {
		return nil, ok, err
	}
	return entry.Data, true, nil
}

// GetEntry is Get's full-record counterpart: it promotes the same way,
// preserving validators and timing.
func (h *Hybrid) GetEntry(ctx context.Context, key string) (netkit.CacheEntry, bool, error) {
	if entry, ok, err := h.memory.GetEntry(ctx, key); err == nil && ok {
		return entry, true, nil
	}
	entry, ok, err := h.disk.GetEntry(ctx, key)
	if err != nil || !ok {
		return netkit.CacheEntry{}, false, err
	}
	_ = h.memory.PutEntry(ctx, key, entry)
	return entry, true, nil
}

// Put writes through to both tiers. A memory-tier failure (capacity
// exceeded) does not block the disk write, since disk is the larger,
// authoritative tier; only a disk failure is surfaced to the caller.
func (h *Hybrid) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return h.PutEntry(ctx, key, netkit.CacheEntry{Data: data, TTL: ttl, CreatedAt: time.Now()})
}

// PutEntry writes the full cache record through to both tiers, following
// the same failure-tolerance rule as Put.
func (h *Hybrid) PutEntry(ctx context.Context, key string, entry netkit.CacheEntry) error {
	_ = h.memory.PutEntry(ctx, key, entry)
	return h.disk.PutEntry(ctx, key, entry)
}

// Remove deletes key from both tiers.
func (h *Hybrid) Remove(ctx context.Context, key string) error {
	_ = h.memory.Remove(ctx, key)
	return h.disk.Remove(ctx, key)
}

// Clear empties both tiers.
func (h *Hybrid) Clear(ctx context.Context) error {
	_ = h.memory.Clear(ctx)
	return h.disk.Clear(ctx)
}

// Contains reports whether key is present, unexpired, in either tier.
func (h *Hybrid) Contains(ctx context.Context, key string) bool {
	return h.memory.Contains(ctx, key) || h.disk.Contains(ctx, key)
}

// Size is the sum of both tiers' sizes.
func (h *Hybrid) Size() int64 {
	return h.memory.Size() + h.disk.Size()
}

var _ netkit.Cache = (*Hybrid)(nil)
