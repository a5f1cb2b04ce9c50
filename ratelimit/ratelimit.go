// Package ratelimit implements a per-host token bucket that both throttles
// outgoing calls proactively and adapts itself from the rate-limit headers
// a server returns, built on golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/corexis/netkit"
)

// Info is the parsed form of a response's rate-limit headers.
type Info struct {
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// ParseHeaders extracts X-RateLimit-Limit/Remaining/Reset and Retry-After
// from a response's headers. Missing headers leave the corresponding zero
// value.
func ParseHeaders(headers map[string]string) Info {
	var info Info
	if v, ok := lookup(headers, "X-RateLimit-Limit"); ok {
		info.Limit, _ = strconv.Atoi(v)
	}
	if v, ok := lookup(headers, "X-RateLimit-Remaining"); ok {
		info.Remaining, _ = strconv.Atoi(v)
	}
	if v, ok := lookup(headers, "X-RateLimit-Reset"); ok {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			info.ResetAt = time.Unix(secs, 0)
		}
	}
	if v, ok := lookup(headers, "Retry-After"); ok {
		if secs, err := strconv.Atoi(v); err == nil {
			info.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return info
}

func lookup(headers map[string]string, canonical string) (string, bool) {
	if v, ok := headers[canonical]; ok {
		return v, true
	}
	lower := strings.ToLower(canonical)
	for k, v := range headers {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	return "", false
}

// Limiter is a per-host rate limiter implementing netkit.RateLimiter: it
// proactively throttles calls via a token bucket per host, and adapts that
// bucket's rate when a server's response headers reveal a tighter budget
// than the configured default.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// New builds a Limiter with a default rate of requestsPerSecond per host
// and the given burst size.
func New(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

func (l *Limiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl, ok := l.limiters[host]
	if !ok {
		rl = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[host] = rl
	}
	return rl
}

// WaitHost blocks until host's bucket has a token available, or ctx is
// cancelled.
func (l *Limiter) WaitHost(ctx context.Context, host string) error {
	if err := l.limiterFor(host).Wait(ctx); err != nil {
		return netkit.NewError(netkit.KindCancelled, "rate limit wait cancelled", err)
	}
	return nil
}

// Observe inspects a response's rate-limit headers and tightens host's
// bucket when the server reports a stricter budget than currently
// configured, adapting to the server rather than only enforcing a
// client-side guess.
func (l *Limiter) Observe(host string, headers map[string]string) {
	info := ParseHeaders(headers)
	if info.Limit <= 0 || info.ResetAt.IsZero() {
		return
	}
	window := time.Until(info.ResetAt)
	if window <= 0 {
		return
	}
	impliedRate := rate.Limit(float64(info.Limit) / window.Seconds())

	rl := l.limiterFor(host)
	if impliedRate > 0 && impliedRate < rl.Limit() {
		rl.SetLimit(impliedRate)
		rl.SetBurst(maxInt(1, info.Remaining))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

var _ netkit.RateLimiter = (*Limiter)(nil)
