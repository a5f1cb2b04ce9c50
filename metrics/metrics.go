// Package metrics implements thread-safe call counters and a point-in-time
// snapshot.
package metrics

import (
	"sync"
	"time"
)

// Snapshot is the point-in-time view returned by Counters.Snapshot.
type Snapshot struct {
	Total           int64
	Success         int64
	Fail            int64
	AverageDuration time.Duration
	Bytes           int64
	SuccessRate     float64
}

// Counters is a thread-safe {total, successful, failed, cumulative latency,
// cumulative bytes} accumulator. Snapshot reads every field under a single
// critical section so the returned values are mutually consistent.
type Counters struct {
	mu            sync.Mutex
	total         int64
	success       int64
	fail          int64
	cumulativeDur time.Duration
	bytes         int64
}

// NewCounters returns a zeroed Counters ready for concurrent use.
func NewCounters() *Counters {
	return &Counters{}
}

// RecordSuccess accounts for a successful call's latency and response size.
func (c *Counters) RecordSuccess(latency time.Duration, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	c.success++
	c.cumulativeDur += latency
	c.bytes += int64(bytes)
}

// RecordFailure accounts for a failed call's latency.
func (c *Counters) RecordFailure(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	c.fail++
	c.cumulativeDur += latency
}

// Snapshot returns a consistent point-in-time copy of every counter.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Total:   c.total,
		Success: c.success,
		Fail:    c.fail,
		Bytes:   c.bytes,
	}
	if c.total > 0 {
		s.AverageDuration = c.cumulativeDur / time.Duration(c.total)
		s.SuccessRate = float64(c.success) / float64(c.total)
	}
	return s
}
