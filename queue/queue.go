// Package queue implements an offline request queue: a priority-ordered,
// disk-persisted backlog of requests to replay once connectivity returns,
// drained through the same Engine used for live calls.
package queue

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/corexis/netkit"
)

// Entry is a queued request: a stable id, the wire shape of the request
// to replay, priority (higher goes first), creation and optional expiry
// times, and a retry counter.
type Entry struct {
	ID         string            `json:"id"`
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty"`
	Priority   int               `json:"priority"`
	CreatedAt  time.Time         `json:"createdAt"`
	ExpiresAt  *time.Time        `json:"expiresAt,omitempty"`
	RetryCount int               `json:"retryCount"`
	LastError  string            `json:"lastError,omitempty"`
}

// IsExpired reports whether the entry has passed its expiry: an expired
// entry must never be handed back to the engine.
func (e Entry) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// Result reports the outcome of replaying one queued entry.
type Result struct {
	Entry   Entry
	Success bool
	Err     error
}

const defaultRetryCap = 3

// Queue is the in-memory, disk-persisted offline backlog.
type Queue struct {
	mu         sync.Mutex
	entries    []Entry
	maxSize    int
	retryCap   int
	path       string
	processing bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithRetryCap overrides the per-entry retry cap (default 3).
func WithRetryCap(n int) Option {
	return func(q *Queue) { q.retryCap = n }
}

// New builds a Queue persisted at path, bounded to maxSize entries, loading
// any existing persisted state. Corrupted state is logged and replaced by
// an empty queue.
func New(path string, maxSize int, opts ...Option) *Queue {
	q := &Queue{path: path, maxSize: maxSize, retryCap: defaultRetryCap}
	for _, opt := range opts {
		opt(q)
	}
	q.load()
	return q
}

func (q *Queue) load() {
	if q.path == "" {
		return
	}
	data, err := os.ReadFile(q.path)
	if err != nil {
		return
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		netkit.GetLogger().Warn("offline queue state corrupted, starting empty", "path", q.path, "error", err)
		return
	}
	q.entries = entries
	q.sortLocked()
}

func (q *Queue) persistLocked() {
	if q.path == "" {
		return
	}
	data, err := json.Marshal(q.entries)
	if err != nil {
		netkit.GetLogger().Warn("failed to marshal offline queue", "error", err)
		return
	}
	if err := os.WriteFile(q.path, data, 0o600); err != nil {
		netkit.GetLogger().Warn("failed to persist offline queue", "path", q.path, "error", err)
	}
}

func (q *Queue) sortLocked() {
	sort.SliceStable(q.entries, func(i, j int) bool {
		if q.entries[i].Priority != q.entries[j].Priority {
			return q.entries[i].Priority > q.entries[j].Priority
		}
		return q.entries[i].CreatedAt.Before(q.entries[j].CreatedAt)
	})
}

// Enqueue appends entry, rejecting it with KindOfflineQueueFull once the
// queue is at capacity.
func (q *Queue) Enqueue(entry Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.maxSize > 0 && len(q.entries) >= q.maxSize {
		return netkit.NewError(netkit.KindOfflineQueueFull, "offline queue is full", nil)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	q.entries = append(q.entries, entry)
	q.sortLocked()
	q.persistLocked()
	return nil
}

// Dequeue drops expired entries from the head region and returns the
// highest-priority non-expired entry, if any.
func (q *Queue) Dequeue() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	for len(q.entries) > 0 {
		head := q.entries[0]
		if head.IsExpired(now) {
			q.entries = q.entries[1:]
			continue
		}
		q.entries = q.entries[1:]
		q.persistLocked()
		return head, true
	}
	q.persistLocked()
	return Entry{}, false
}

// Peek returns the highest-priority non-expired entry without removing it.
func (q *Queue) Peek() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	for _, e := range q.entries {
		if !e.IsExpired(now) {
			return e, true
		}
	}
	return Entry{}, false
}

// Remove deletes the entry with the given id, if present.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.persistLocked()
			return
		}
	}
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
	q.persistLocked()
}

// GetAll returns every non-expired entry, in drain order.
func (q *Queue) GetAll() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	out := make([]Entry, 0, len(q.entries))
	for _, e := range q.entries {
		if !e.IsExpired(now) {
			out = append(out, e)
		}
	}
	return out
}

// Size returns the current entry count, including any not-yet-purged
// expired entries.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Replayer submits a queued entry to the engine and reports whether it
// succeeded. Callers typically close over an *netkit.Engine and tag
// requests so the Sync Manager's no-requeue rule can be enforced.
type Replayer func(ctx context.Context, e Entry) error

// ProcessQueue drains the queue, submitting each entry to replay. It is
// guarded by an internal processing flag so concurrent calls do not race:
// only one drain runs at a time.
func (q *Queue) ProcessQueue(ctx context.Context, replay Replayer, onResult func(Result)) {
	q.mu.Lock()
	if q.processing {
		q.mu.Unlock()
		return
	}
	q.processing = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.processing = false
		q.mu.Unlock()
	}()

	for {
		entry, ok := q.Dequeue()
		if !ok {
			return
		}

		err := replay(ctx, entry)
		if err == nil {
			if onResult != nil {
				onResult(Result{Entry: entry, Success: true})
			}
			continue
		}

		entry.RetryCount++
		entry.LastError = err.Error()
		if entry.RetryCount < q.retryCap && !entry.IsExpired(time.Now()) {
			_ = q.Enqueue(entry)
			continue
		}
		if onResult != nil {
			onResult(Result{Entry: entry, Success: false, Err: err})
		}
	}
}
