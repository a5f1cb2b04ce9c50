// Package cache implements a memory, disk, and hybrid two-tier response
// cache.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/peterbourgon/diskv"

	"github.com/corexis/netkit"
)

// manifestEntry is the persisted on-disk record: {filename, size,
// createdAtEpochSeconds, ttlSeconds?, etag?, lastModified?}.
type manifestEntry struct {
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
	CreatedAt    int64  `json:"createdAtEpochSeconds"`
	TTL          int64  `json:"ttlSeconds,omitempty"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// Disk is a crash-safe, size-bounded on-disk cache tier. Raw bytes are
// written through peterbourgon/diskv; the manifest (required for TTL and
// size accounting, which diskv has no concept of) is maintained
// independently as a JSON file alongside the data directory.
type Disk struct {
	mu        sync.Mutex
	d         *diskv.Diskv
	manifestP string
	entries   map[string]manifestEntry
	size      int64
	maxSize   int64
	security  *security
}

// NewDisk opens (or creates) a disk cache rooted at basePath, with maxSize
// bytes of total capacity across all entries.
func NewDisk(basePath string, maxSize int64, opts ...DiskOption) (*Disk, error) {
	d := &Disk{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: uint64(maxSize),
		}),
		manifestP: filepath.Join(basePath, "manifest.json"),
		entries:   make(map[string]manifestEntry),
		maxSize:   maxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

// DiskOption configures a Disk cache at construction.
type DiskOption func(*Disk)

// WithDiskEncryption enables AES-256-GCM at-rest encryption, deriving the
// key from passphrase via scrypt.
func WithDiskEncryption(passphrase string) DiskOption {
	return func(d *Disk) {
		d.security, _ = newSecurity(passphrase)
	}
}

// load reads the manifest, drops expired entries, and reconciles it
// against the actual file set: orphan files are deleted, entries whose
// file is missing are purged.
func (d *Disk) load() error {
	data, err := os.ReadFile(d.manifestP)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache: failed to read manifest: %w", err)
	}

	var raw map[string]manifestEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		netkit.GetLogger().Warn("cache: corrupted manifest, starting empty", "error", err)
		return nil
	}

	now := time.Now().Unix()
	var total int64
	known := make(map[string]struct{}, len(raw))
	for key, entry := range raw {
		if entry.TTL > 0 && now-entry.CreatedAt > entry.TTL {
			_ = d.d.Erase(entry.Filename)
			continue
		}
		if !d.d.Has(entry.Filename) {
			continue // missing-file entries purged
		}
		d.entries[key] = entry
		known[entry.Filename] = struct{}{}
		total += entry.Size
	}
	d.size = total
	d.pruneOrphans(known)
	return d.persist()
}

// pruneOrphans deletes every file diskv is holding that has no
// corresponding manifest entry: the file set is authoritative, so a
// manifest/file mismatch is always resolved in the file set's favor,
// orphans included.
func (d *Disk) pruneOrphans(known map[string]struct{}) {
	cancel := make(chan struct{})
	defer close(cancel)
	for filename := range d.d.Keys(cancel) {
		if _, ok := known[filename]; !ok {
			_ = d.d.Erase(filename)
		}
	}
}

func (d *Disk) persist() error {
	data, err := json.Marshal(d.entries)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.manifestP), 0o755); err != nil {
		return fmt.Errorf("cache: failed to create cache dir: %w", err)
	}
	return os.WriteFile(d.manifestP, data, 0o644)
}

func keyToFilename(key string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the bytes stored for key, per netkit.Cache.
func (d *Disk) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok, err := d.GetEntry(ctx, key)
	if !ok || err != nil {
		return nil, ok, err
	}
	return entry.Data, true, nil
}

// GetEntry returns the full cache record for key, including its ETag and
// Last-Modified validators and its original TTL and creation time, so a
// caller promoting the entry into a faster tier can preserve its expiry
// clock instead of restarting it.
func (d *Disk) GetEntry(_ context.Context, key string) (netkit.CacheEntry, bool, error) {
	d.mu.Lock()
	entry, ok := d.entries[key]
	if ok && entry.TTL > 0 && time.Now().Unix()-entry.CreatedAt > entry.TTL {
		delete(d.entries, key)
		d.size -= entry.Size
		_ = d.d.Erase(entry.Filename)
		_ = d.persist()
		ok = false
	}
	d.mu.Unlock()
	if !ok {
		return netkit.CacheEntry{}, false, nil
	}

	data, err := d.d.Read(entry.Filename)
	if err != nil {
		return netkit.CacheEntry{}, false, nil
	}
	if d.security != nil {
		data, err = d.security.decrypt(data)
		if err != nil {
			return netkit.CacheEntry{}, false, fmt.Errorf("cache: decrypt failed: %w", err)
		}
	}
	return netkit.CacheEntry{
		Data:         data,
		ETag:         entry.ETag,
		LastModified: entry.LastModified,
		CreatedAt:    time.Unix(entry.CreatedAt, 0),
		TTL:          time.Duration(entry.TTL) * time.Second,
	}, true, nil
}

// Put writes data through to disk, evicting the oldest-created entries
// first until size fits maxSize.
func (d *Disk) Put(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return d.PutEntry(ctx, key, netkit.CacheEntry{Data: data, TTL: ttl, CreatedAt: time.Now()})
}

// PutEntry writes the full cache record through to disk, preserving
// whatever CreatedAt the caller supplies (the zero value is treated as
// "now"), evicting the oldest-created entries first until size fits
// maxSize.
func (d *Disk) PutEntry(_ context.Context, key string, entry netkit.CacheEntry) error {
	payload := entry.Data
	if d.security != nil {
		enc, err := d.security.encrypt(payload)
		if err != nil {
			return fmt.Errorf("cache: encrypt failed: %w", err)
		}
		payload = enc
	}

	filename := keyToFilename(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.entries[key]; ok {
		d.size -= old.Size
		_ = d.d.Erase(old.Filename)
	}

	newSize := int64(len(payload))
	for d.size+newSize > d.maxSize && len(d.entries) > 0 {
		oldestKey, oldest := d.oldestLocked()
		delete(d.entries, oldestKey)
		d.size -= oldest.Size
		_ = d.d.Erase(oldest.Filename)
	}
	if d.size+newSize > d.maxSize {
		return netkit.NewError(netkit.KindCacheWriteFailed, "entry exceeds disk cache capacity", nil)
	}

	if err := d.d.WriteStream(filename, bytes.NewReader(payload), true); err != nil {
		return fmt.Errorf("cache: disk write failed: %w", err)
	}

	var ttlSeconds int64
	if entry.TTL > 0 {
		ttlSeconds = int64(entry.TTL.Seconds())
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	d.entries[key] = manifestEntry{
		Filename:     filename,
		Size:         newSize,
		CreatedAt:    createdAt.Unix(),
		TTL:          ttlSeconds,
		ETag:         entry.ETag,
		LastModified: entry.LastModified,
	}
	d.size += newSize
	return d.persist()
}

func (d *Disk) oldestLocked() (string, manifestEntry) {
	var oldestKey string
	var oldest manifestEntry
	first := true
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic tie-break
	for _, k := range keys {
		e := d.entries[k]
		if first || e.CreatedAt < oldest.CreatedAt {
			oldestKey, oldest, first = k, e, false
		}
	}
	return oldestKey, oldest
}

// Remove deletes key from the disk cache, if present.
func (d *Disk) Remove(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.entries[key]
	if !ok {
		return nil
	}
	delete(d.entries, key)
	d.size -= entry.Size
	_ = d.d.Erase(entry.Filename)
	return d.persist()
}

// Clear empties the disk cache entirely.
func (d *Disk) Clear(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, entry := range d.entries {
		_ = d.d.Erase(entry.Filename)
	}
	d.entries = make(map[string]manifestEntry)
	d.size = 0
	return d.persist()
}

// Contains reports whether key is present and unexpired.
func (d *Disk) Contains(ctx context.Context, key string) bool {
	_, ok, _ := d.Get(ctx, key)
	return ok
}

// Size returns the total bytes currently stored on disk.
func (d *Disk) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

var _ netkit.Cache = (*Disk)(nil)
