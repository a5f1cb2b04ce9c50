package netkit

import "time"

// EngineOption configures an Engine at construction time: small functions
// over the concrete type instead of a mutable global config struct.
type EngineOption func(*Engine) error

// WithTransport sets the underlying Transport used to perform calls. If
// unset, NewEngine falls back to an adapter over http.DefaultClient.
func WithTransport(t Transport) EngineOption {
	return func(e *Engine) error {
		e.transport = t
		return nil
	}
}

// WithCache attaches a Cache implementation (typically from netkit/cache).
// If unset, the engine runs with caching disabled: cache lookups are always
// misses and writes are no-ops.
func WithCache(c Cache) EngineOption {
	return func(e *Engine) error {
		e.cache = c
		return nil
	}
}

// WithDefaultCacheTTL sets the TTL used when an Endpoint's CachePolicy
// requests caching but leaves TTL at zero and the response carries no
// usable Cache-Control max-age (see DeriveTTL). In that case a response
// marked no-store or no-cache is not written to the cache.
func WithDefaultCacheTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) error {
		e.defaultCacheTTL = ttl
		return nil
	}
}

// WithRetryController attaches a RetryController (typically from
// netkit/retry). If unset, failed calls are never retried.
func WithRetryController(r RetryController) EngineOption {
	return func(e *Engine) error {
		e.retry = r
		return nil
	}
}

// WithBreaker attaches a Breaker (typically from netkit/breaker). If unset,
// every call is always allowed.
func WithBreaker(b Breaker) EngineOption {
	return func(e *Engine) error {
		e.breaker = b
		return nil
	}
}

// WithAuthenticator sets the Authenticator used for Endpoints with
// AuthRequire set. Equivalent to calling Engine.SetAuthenticator after
// construction.
func WithAuthenticator(a Authenticator) EngineOption {
	return func(e *Engine) error {
		e.auth = a
		return nil
	}
}

// WithRateLimiter attaches a RateLimiter (typically from netkit/ratelimit).
func WithRateLimiter(r RateLimiter) EngineOption {
	return func(e *Engine) error {
		e.rateLimiter = r
		return nil
	}
}

// WithMetrics attaches a MetricsRecorder (typically from netkit/metrics).
func WithMetrics(m MetricsRecorder) EngineOption {
	return func(e *Engine) error {
		e.metrics = m
		return nil
	}
}

// WithDefaultCodec sets the codec used to decode responses for Endpoints
// that do not specify their own. Defaults to JSONCodec.
func WithDefaultCodec(c Codec) EngineOption {
	return func(e *Engine) error {
		e.defaultCodec = c
		return nil
	}
}

// WithMaxAttempts bounds the retry loop's attempt count (default 1) for
// every call, whether its retry decisions come from the engine-wide
// controller or from the endpoint's own Retry.
func WithMaxAttempts(n int) EngineOption {
	return func(e *Engine) error {
		e.maxAttempts = n
		return nil
	}
}
