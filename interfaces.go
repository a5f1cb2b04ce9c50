package netkit

import (
	"context"
	"time"

	"github.com/corexis/netkit/metrics"
)

// CacheEntry is the full cache record a tier stores: the response bytes
// plus the conditional-request validators and timing a revalidation path
// (or a tier promoting an entry to a faster tier) needs alongside them.
type CacheEntry struct {
	Data         []byte
	ETag         string
	LastModified string
	CreatedAt    time.Time
	TTL          time.Duration
}

// Cache is the contract shared by the memory, disk, and hybrid
// implementations in netkit/cache. The engine only ever
// depends on this interface, never a concrete cache type, so swapping tiers
// requires no change to engine.go.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	GetEntry(ctx context.Context, key string) (CacheEntry, bool, error)
	Put(ctx context.Context, key string, data []byte, ttl time.Duration) error
	PutEntry(ctx context.Context, key string, entry CacheEntry) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Contains(ctx context.Context, key string) bool
	Size() int64
}

// RetryDecision is the outcome of a retry controller consultation.
type RetryDecision struct {
	ShouldRetry bool
	Delay       time.Duration
}

// RetryController is the contract netkit/retry.Controller satisfies.
type RetryController interface {
	Decide(kind ErrorKind, statusCode int, attempt int, retryAfter time.Duration) RetryDecision
}

// Breaker is the contract netkit/breaker.Breaker satisfies.
type Breaker interface {
	Allow() (done func(success bool), err error)
}

// Authenticator is the contract netkit/auth implementations satisfy.
type Authenticator interface {
	Authenticate(ctx context.Context, req *WireRequest) error
	Refresh(ctx context.Context) error
	IsValid() bool
	Logout()
}

// RateLimiter is the contract netkit/ratelimit.Limiter satisfies.
type RateLimiter interface {
	Observe(host string, headers map[string]string)
	WaitHost(ctx context.Context, host string) error
}

// MetricsRecorder is the contract netkit/metrics.Counters satisfies.
type MetricsRecorder interface {
	RecordSuccess(latency time.Duration, bytes int)
	RecordFailure(latency time.Duration)
	Snapshot() metrics.Snapshot
}

// Transport is the minimal round-trip contract the engine drives; it is
// satisfied directly by *http.Client's Do via a small adapter in engine.go,
// letting tests substitute a fake transport without standing up a server.
type Transport interface {
	RoundTrip(ctx context.Context, req *WireRequest) (*RawResponse, error)
}
