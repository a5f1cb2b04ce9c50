package netkit

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/corexis/netkit/metrics"
)

// Engine is the request-pipeline orchestrator. It owns
// exactly one Cache, one Authenticator, one Breaker, one RetryController,
// one RateLimiter, and one MetricsRecorder, and is safe to call from many
// concurrent goroutines: each call builds its own RequestContext, and every
// shared collaborator serializes its own mutation internally.
type Engine struct {
	transport       Transport
	cache           Cache
	defaultCacheTTL time.Duration
	retry           RetryController
	breaker         Breaker
	rateLimiter     RateLimiter
	metrics         MetricsRecorder
	defaultCodec    Codec
	maxAttempts     int

	mu   sync.RWMutex
	auth Authenticator

	interceptors interceptorChain
}

// NewEngine constructs an Engine from the given options. Unset
// collaborators degrade gracefully: no cache means every lookup misses, no
// retry controller means failures are terminal on first attempt, no
// breaker means every call is allowed.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		defaultCodec: DefaultCodec,
		maxAttempts:  1,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.transport == nil {
		e.transport = &httpTransport{client: http.DefaultClient}
	}
	return e, nil
}

// AddInterceptor registers a pre- and/or post-request hook. Request hooks
// run in registration order; response hooks run in reverse.
func (e *Engine) AddInterceptor(i any) {
	if ri, ok := i.(RequestInterceptor); ok {
		e.interceptors.addRequest(ri)
	}
	if ri, ok := i.(ResponseInterceptor); ok {
		e.interceptors.addResponse(ri)
	}
}

// ClearInterceptors removes every registered interceptor.
func (e *Engine) ClearInterceptors() {
	e.interceptors.clear()
}

// SetAuthenticator installs (or replaces) the Authenticator used for
// Endpoints with AuthRequire set.
func (e *Engine) SetAuthenticator(a Authenticator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auth = a
}

// ClearCache empties the attached cache, if any. Idempotent: calling it
// twice in a row is equivalent to calling it once.
func (e *Engine) ClearCache(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Clear(ctx)
}

// MetricsSnapshot returns a point-in-time view of the engine's call
// counters, or the zero Snapshot if no MetricsRecorder was configured.
func (e *Engine) MetricsSnapshot() metrics.Snapshot {
	if e.metrics == nil {
		return metrics.Snapshot{}
	}
	return e.metrics.Snapshot()
}

// Execute runs the full pipeline for an Endpoint and decodes the result
// into T.
func Execute[T any](ctx context.Context, e *Engine, ep Endpoint) (Response[T], error) {
	raw, rc, fromCache, err := e.executeCore(ctx, ep)
	if err != nil {
		return Response[T]{}, err
	}

	var zero T
	resp := Response[T]{
		Payload:    zero,
		StatusCode: raw.StatusCode,
		Headers:    raw.Headers,
		URL:        raw.URL,
		Meta: ResponseMeta{
			RequestID:  rc.ID(),
			StartedAt:  rc.StartedAt(),
			EndedAt:    time.Now(),
			ByteSize:   len(raw.Body),
			FromCache:  fromCache,
			RetryCount: rc.RetryCount(),
		},
	}

	codec := ep.Codec
	if codec == nil {
		codec = e.defaultCodec
	}
	if len(raw.Body) > 0 {
		if err := codec.Decode(raw.Body, &resp.Payload); err != nil {
			return Response[T]{}, NewError(KindDecodingFailed, "failed to decode response body", err)
		}
	}

	return resp, nil
}

// ExecuteRaw runs the pipeline but returns the undecoded bytes, status, and
// headers without requiring a decode target type.
func (e *Engine) ExecuteRaw(ctx context.Context, ep Endpoint) (*RawResponse, error) {
	raw, _, _, err := e.executeCore(ctx, ep)
	return raw, err
}

// Upload performs a request carrying a pre-built raw payload, intended for
// large-body uploads that bypass the usual BodyVariant encoding path.
// progress, if non-nil, is invoked after the payload is attached.
func (e *Engine) Upload(ctx context.Context, ep Endpoint, data []byte, progress func(sent, total int)) (*RawResponse, error) {
	ep.Body = RawBody{Data: data, MediaType: ep.ContentType}
	if progress != nil {
		progress(len(data), len(data))
	}
	return e.ExecuteRaw(ctx, ep)
}

// Download performs a GET-shaped request and returns the raw body bytes.
// progress, if non-nil, is invoked once with the final byte count: the
// engine does not stream (see netkit/stream for chunked transport).
func (e *Engine) Download(ctx context.Context, ep Endpoint, progress func(received, total int)) ([]byte, error) {
	raw, err := e.ExecuteRaw(ctx, ep)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(len(raw.Body), len(raw.Body))
	}
	return raw.Body, nil
}

// executeCore runs the full request pipeline, shared by Execute and
// ExecuteRaw. It returns the raw response, the context used for the call
// (for metadata), and whether the response was served from cache.
func (e *Engine) executeCore(ctx context.Context, ep Endpoint) (*RawResponse, *RequestContext, bool, error) {
	rc := newRequestContext() // step 1
	for _, tag := range tagsFromContext(ctx) {
		rc.Tag(tag)
	}

	wire, err := toWireRequest(ep, nil) // step 2
	if err != nil {
		return nil, rc, false, err
	}

	if err := e.interceptors.runRequest(ctx, rc, wire); err != nil { // step 3
		return nil, rc, false, err
	}

	if ep.AuthRequire { // step 4
		e.mu.RLock()
		auth := e.auth
		e.mu.RUnlock()
		if auth == nil {
			return nil, rc, false, NewError(KindAuthenticationRequired, "no authenticator configured", nil)
		}
		if err := auth.Authenticate(ctx, wire); err != nil {
			return nil, rc, false, err
		}
	}

	cacheable := ep.Method.IsCacheable()
	var key string
	if cacheable && ep.Cache.ReadFromCache && e.cache != nil { // step 5
		key = cacheKey(wire)
		if data, ok, err := e.cache.Get(ctx, key); err == nil && ok {
			cached := &RawResponse{StatusCode: 200, Headers: map[string]string{}, Body: data, URL: wire.URL}
			if err := e.interceptors.runResponse(ctx, rc, cached); err != nil {
				return nil, rc, false, err
			}
			return cached, rc, true, nil
		}
	} else if cacheable {
		key = cacheKey(wire)
	}

	raw, err := e.runRetryLoop(ctx, ep, wire, rc) // steps 6-7
	if err != nil {
		return nil, rc, false, err
	}

	if cacheable && ep.Cache.WriteToCache && e.cache != nil { // step 9
		ttl := ep.Cache.TTL
		store := true
		if ttl <= 0 {
			ttl = DeriveTTL(raw.Headers, e.defaultCacheTTL)
			cc := parseCacheControl(lookupHeaderValue(raw.Headers, "Cache-Control"))
			_, noStore := cc["no-store"]
			_, noCache := cc["no-cache"]
			store = !noStore && !noCache
		}
		if store {
			if err := e.cache.Put(ctx, key, raw.Body, ttl); err != nil {
				GetLogger().Warn("cache write failed", "error", err, "key", key)
			}
		}
	}

	if err := e.interceptors.runResponse(ctx, rc, raw); err != nil { // step 10
		return nil, rc, false, err
	}

	return raw, rc, false, nil
}

// runRetryLoop is the breaker-gated, retry-governed transport loop,
// including the single-shot 401 refresh.
func (e *Engine) runRetryLoop(ctx context.Context, ep Endpoint, wire *WireRequest, rc *RequestContext) (*RawResponse, error) {
	maxAttempts := e.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	authRetried := false
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var done func(success bool)
		if e.breaker != nil {
			var err error
			done, err = e.breaker.Allow()
			if err != nil {
				return nil, NewError(KindServiceUnavailable, "circuit breaker open", err)
			}
		}

		if e.rateLimiter != nil {
			if host := hostOf(wire.URL); host != "" {
				if err := e.rateLimiter.WaitHost(ctx, host); err != nil {
					if done != nil {
						done(false)
					}
					return nil, NewError(KindCancelled, "rate limit wait cancelled", err)
				}
			}
		}

		start := time.Now()
		raw, transportErr := e.transport.RoundTrip(ctx, wire)
		latency := time.Since(start)

		if transportErr != nil {
			if done != nil {
				done(false)
			}
			if e.metrics != nil {
				e.metrics.RecordFailure(latency)
			}
			lastErr = transportErr
			kind := KindOf(transportErr)
			if kind == KindUnknown {
				kind = KindNoConnection
			}
			if !e.shouldRetry(ep, kind, 0, attempt, 0) {
				return nil, transportErr
			}
			rc.incrementRetry()
			e.sleep(ctx, e.delayFor(ep, kind, 0, attempt, 0))
			continue
		}

		if e.rateLimiter != nil {
			if host := hostOf(wire.URL); host != "" {
				e.rateLimiter.Observe(host, raw.Headers)
			}
		}

		if raw.StatusCode >= 200 && raw.StatusCode < 300 {
			if done != nil {
				done(true)
			}
			if e.metrics != nil {
				e.metrics.RecordSuccess(latency, len(raw.Body))
			}
			return raw, nil
		}

		if raw.StatusCode == 401 && !authRetried {
			authRetried = true
			if done != nil {
				done(false)
			}
			e.mu.RLock()
			auth := e.auth
			e.mu.RUnlock()
			if auth == nil {
				return nil, NewHTTPError(KindUnauthorized, 401, "unauthorized, no authenticator to refresh")
			}
			if err := auth.Refresh(ctx); err != nil {
				return nil, NewError(KindTokenRefreshFailed, "token refresh failed", err)
			}
			if err := auth.Authenticate(ctx, wire); err != nil {
				return nil, err
			}
			attempt-- // the refresh-and-retry is one-shot and does not count against attempts
			continue
		}
		if raw.StatusCode == 401 {
			if done != nil {
				done(false)
			}
			return nil, NewHTTPError(KindUnauthorized, 401, "unauthorized after refresh")
		}

		classified := classifyStatusCode(raw.StatusCode, raw.Body)
		lastErr = classified

		if done != nil {
			done(false)
		}
		if e.metrics != nil {
			e.metrics.RecordFailure(latency)
		}

		// The controller itself decides eligibility from both the
		// classified kind and the raw status code (so e.g. a
		// KindClientError status in the configured retryable set, such
		// as 408, still gets a retry) rather than the engine gating on
		// kind first.
		retryAfter := retryAfterSeconds(raw.Headers)
		if !e.shouldRetry(ep, classified.Kind, raw.StatusCode, attempt, time.Duration(retryAfter)*time.Second) {
			return nil, classified
		}
		rc.incrementRetry()
		e.sleep(ctx, e.delayFor(ep, classified.Kind, raw.StatusCode, attempt, time.Duration(retryAfter)*time.Second))
		continue
	}

	return nil, NewMaxRetriesExceeded(rc.RetryCount(), lastErr)
}

// retryControllerFor returns ep's per-endpoint retry override when set,
// falling back to the engine-wide controller.
func (e *Engine) retryControllerFor(ep Endpoint) RetryController {
	if ep.Retry != nil {
		return ep.Retry
	}
	return e.retry
}

func (e *Engine) shouldRetry(ep Endpoint, kind ErrorKind, statusCode, attempt int, retryAfter time.Duration) bool {
	ctrl := e.retryControllerFor(ep)
	if ctrl == nil {
		return false
	}
	return ctrl.Decide(kind, statusCode, attempt, retryAfter).ShouldRetry
}

func (e *Engine) delayFor(ep Endpoint, kind ErrorKind, statusCode, attempt int, retryAfter time.Duration) time.Duration {
	ctrl := e.retryControllerFor(ep)
	if ctrl == nil {
		return 0
	}
	return ctrl.Decide(kind, statusCode, attempt, retryAfter).Delay
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func retryAfterSeconds(headers map[string]string) int {
	v, ok := headers["Retry-After"]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// httpTransport adapts *http.Client to the Transport interface.
type httpTransport struct {
	client *http.Client
}

func (t *httpTransport) RoundTrip(ctx context.Context, req *WireRequest) (*RawResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, bodyReader(req.Body))
	if err != nil {
		return nil, NewError(KindInvalidRequest, "failed to build transport request", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	client := t.client
	if req.Timeout > 0 {
		c := *client
		c.Timeout = req.Timeout
		client = &c
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := readAll(resp.Body)
	if err != nil {
		return nil, NewError(KindNoData, "failed to read response body", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       body,
		URL:        req.URL,
	}, nil
}
