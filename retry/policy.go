// Package retry implements a decision-and-delay controller: given a
// classified failure and the current attempt number, decide whether to
// retry and how long to wait first.
package retry

import (
	"math"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/corexis/netkit"
)

// StrategyKind is the closed set of delay strategies a Policy can use.
type StrategyKind int

const (
	Immediate StrategyKind = iota
	Constant
	Exponential
	Custom
)

// Jitter is the closed set of jitter transforms layered over a strategy's
// computed delay. go-retry's own jitter helper (WithJitter) is a single
// fixed-fraction strategy and cannot express these four named algorithms,
// so they are applied directly here instead.
type Jitter int

const (
	NoJitter Jitter = iota
	Full
	Equal
	Decorrelated
)

// Strategy computes the unjittered delay for a given 0-based attempt.
type Strategy struct {
	Kind       StrategyKind
	Constant   time.Duration   // used when Kind == Constant
	Base       time.Duration   // used when Kind == Exponential
	Multiplier float64         // used when Kind == Exponential, default 2.0
	CustomFn   func(attempt int) time.Duration
}

// delay returns the strategy's raw delay before jitter and Retry-After
// override are applied.
func (s Strategy) delay(attempt int) time.Duration {
	switch s.Kind {
	case Immediate:
		return 0
	case Constant:
		b, _ := goretry.NewConstant(s.Constant)
		d, _ := b.Next()
		return d
	case Exponential:
		mult := s.Multiplier
		if mult == 0 {
			mult = 2.0
		}
		if mult == 2.0 {
			b, _ := goretry.NewExponential(s.Base)
			var d time.Duration
			for i := 0; i <= attempt; i++ {
				d, _ = b.Next()
			}
			return d
		}
		// go-retry hardcodes base-2 growth; an arbitrary multiplier needs
		// the formula computed directly.
		scaled := float64(s.Base) * math.Pow(mult, float64(attempt))
		return time.Duration(scaled)
	case Custom:
		if s.CustomFn != nil {
			return s.CustomFn(attempt)
		}
		return 0
	default:
		return 0
	}
}

// Policy is the full retry configuration for an endpoint or engine
// default.
type Policy struct {
	MaxAttempts            int
	Strategy               Strategy
	Jitter                 Jitter
	RetryMaxDelay          time.Duration
	RetryableKinds         map[netkit.ErrorKind]bool
	RetryableStatusCodes   map[int]bool
	RetryOnTimeout         bool
	RetryOnConnectionError bool
	name                   string
}

// Name satisfies netkit.RetryPolicyRef.
func (p Policy) Name() string {
	if p.name == "" {
		return "default"
	}
	return p.name
}

// DefaultRetryableStatusCodes is the default retryable status set:
// {408, 429, 500, 502, 503, 504}.
func DefaultRetryableStatusCodes() map[int]bool {
	return map[int]bool{408: true, 429: true, 500: true, 502: true, 503: true, 504: true}
}

// NewPolicy builds a Policy with sensible defaults: exponential backoff
// (1s base, 2x multiplier), full jitter, the default retryable status
// code set, and both connectivity switches enabled.
func NewPolicy(name string, maxAttempts int) Policy {
	return Policy{
		name:        name,
		MaxAttempts: maxAttempts,
		Strategy: Strategy{
			Kind:       Exponential,
			Base:       time.Second,
			Multiplier: 2.0,
		},
		Jitter:                 Full,
		RetryMaxDelay:          30 * time.Second,
		RetryableStatusCodes:   DefaultRetryableStatusCodes(),
		RetryOnTimeout:         true,
		RetryOnConnectionError: true,
	}
}
