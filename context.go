package netkit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ctxTagsKey is the context.Context key under which WithTag stashes the
// tags a call issued through that context should be seeded with.
type ctxTagsKey struct{}

// WithTag returns a context derived from ctx that causes every
// RequestContext built for a call issued through it to start pre-tagged
// with tag. Callers that drive the engine from outside code that never
// sees a *RequestContext (e.g. the offline sync manager marking replayed
// calls no-requeue) use this to reach the tag through to the pipeline.
func WithTag(ctx context.Context, tag string) context.Context {
	existing, _ := ctx.Value(ctxTagsKey{}).([]string)
	tags := make([]string, len(existing), len(existing)+1)
	copy(tags, existing)
	tags = append(tags, tag)
	return context.WithValue(ctx, ctxTagsKey{}, tags)
}

func tagsFromContext(ctx context.Context) []string {
	tags, _ := ctx.Value(ctxTagsKey{}).([]string)
	return tags
}

// ContextHasTag reports whether tag was attached to ctx via WithTag. It
// lets code that only has the context in hand (not a *RequestContext) —
// for instance failure-handling logic deciding whether to re-enqueue a
// failed call — check the same tag the engine seeds onto its
// RequestContext.
func ContextHasTag(ctx context.Context, tag string) bool {
	for _, t := range tagsFromContext(ctx) {
		if t == tag {
			return true
		}
	}
	return false
}

// RequestContext is per-attempt bookkeeping the engine threads through a
// single execute() call. Callers never construct one directly; it is
// produced by the engine and exposed to interceptors read-only via the
// accessor methods below, with mutation confined to engine.go.
type RequestContext struct {
	id         string
	startedAt  time.Time
	retryCount int
	tags       map[string]struct{}
	metadata   map[string]any
}

func newRequestContext() *RequestContext {
	return &RequestContext{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		tags:      make(map[string]struct{}),
		metadata:  make(map[string]any),
	}
}

// ID is the unique identifier assigned to this request attempt.
func (c *RequestContext) ID() string { return c.id }

// StartedAt is when the engine began processing this request.
func (c *RequestContext) StartedAt() time.Time { return c.startedAt }

// RetryCount is the number of retry attempts made so far (0 on first try).
func (c *RequestContext) RetryCount() int { return c.retryCount }

// HasTag reports whether tag was attached to this request, e.g. the
// "no-requeue" tag the sync manager attaches to avoid requeue cycles.
func (c *RequestContext) HasTag(tag string) bool {
	_, ok := c.tags[tag]
	return ok
}

// Tag attaches an arbitrary marker to this request's context.
func (c *RequestContext) Tag(tag string) {
	c.tags[tag] = struct{}{}
}

// Metadata returns a free-form value stashed by an interceptor or the
// engine, and whether it was present.
func (c *RequestContext) Metadata(key string) (any, bool) {
	v, ok := c.metadata[key]
	return v, ok
}

// SetMetadata stores a free-form value keyed by key for later pipeline
// stages or post-interceptors to read back.
func (c *RequestContext) SetMetadata(key string, value any) {
	c.metadata[key] = value
}

func (c *RequestContext) incrementRetry() {
	c.retryCount++
}
