package retry

import (
	"math/rand"
	"sync"
	"time"

	"github.com/corexis/netkit"
)

// Controller implements netkit.RetryController over a Policy.
type Controller struct {
	Policy Policy

	// mu serializes Decide: the engine shares one Controller across all
	// concurrent calls.
	mu sync.Mutex

	// rand supplies jitter randomness; overridable for deterministic tests.
	rand *rand.Rand

	// prevDelay tracks the last jittered delay per Decorrelated jitter's
	// "decorrelated" formula, which references its own previous output.
	// It is a single running value per Controller, so calls sharing a
	// Controller also share this value.
	prevDelay time.Duration
}

// NewController builds a Controller for policy.
func NewController(policy Policy) *Controller {
	return &Controller{Policy: policy, rand: rand.New(rand.NewSource(1)), prevDelay: policy.Strategy.Base}
}

// Decide applies the policy's decision rule: is attempt eligible to
// retry, and if so, after what delay.
func (c *Controller) Decide(kind netkit.ErrorKind, statusCode int, attempt int, retryAfter time.Duration) netkit.RetryDecision {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.eligible(kind, statusCode, attempt) {
		return netkit.RetryDecision{ShouldRetry: false}
	}

	delay := c.Policy.Strategy.delay(attempt)
	if c.Policy.RetryMaxDelay > 0 && delay > c.Policy.RetryMaxDelay {
		delay = c.Policy.RetryMaxDelay
	}
	delay = c.applyJitter(delay)

	// Retry-After from the server overrides the computed delay when
	// present and larger.
	if retryAfter > delay {
		delay = retryAfter
	}

	return netkit.RetryDecision{ShouldRetry: true, Delay: delay}
}

func (c *Controller) eligible(kind netkit.ErrorKind, statusCode int, attempt int) bool {
	if c.Policy.MaxAttempts > 0 && attempt >= c.Policy.MaxAttempts {
		return false
	}

	if statusCode > 0 {
		if len(c.Policy.RetryableStatusCodes) > 0 && c.Policy.RetryableStatusCodes[statusCode] {
			return true
		}
	}

	if c.Policy.RetryOnTimeout && kind == netkit.KindTimeout {
		return true
	}
	if c.Policy.RetryOnConnectionError && kind.IsConnectivity() && kind != netkit.KindTimeout {
		return true
	}
	if len(c.Policy.RetryableKinds) > 0 && c.Policy.RetryableKinds[kind] {
		return true
	}

	return false
}

// applyJitter applies the policy's named jitter transform to delay.
func (c *Controller) applyJitter(delay time.Duration) time.Duration {
	switch c.Policy.Jitter {
	case NoJitter:
		return delay
	case Full:
		// Uniform random value in [0, delay).
		if delay <= 0 {
			return 0
		}
		return time.Duration(c.rand.Int63n(int64(delay)))
	case Equal:
		// half fixed + half random: delay/2 + rand(0, delay/2)
		half := delay / 2
		if half <= 0 {
			return delay
		}
		return half + time.Duration(c.rand.Int63n(int64(half)))
	case Decorrelated:
		// next = min(cap, rand(base, prev*3))
		base := c.Policy.Strategy.Base
		if base <= 0 {
			base = time.Millisecond * 100
		}
		upper := c.prevDelay * 3
		if upper <= base {
			upper = base + 1
		}
		next := base + time.Duration(c.rand.Int63n(int64(upper-base)))
		if c.Policy.RetryMaxDelay > 0 && next > c.Policy.RetryMaxDelay {
			next = c.Policy.RetryMaxDelay
		}
		c.prevDelay = next
		return next
	default:
		return delay
	}
}

// Name satisfies netkit.RetryPolicyRef, letting a Controller be installed
// directly as an Endpoint's per-call retry override.
func (c *Controller) Name() string { return c.Policy.Name() }

var _ netkit.RetryController = (*Controller)(nil)
var _ netkit.RetryPolicyRef = (*Controller)(nil)
