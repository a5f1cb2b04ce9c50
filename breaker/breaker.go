// Package breaker implements a per-endpoint circuit breaker over
// sony/gobreaker's two-step breaker, whose Allow() method already matches
// netkit.Breaker's shape 1:1: gobreaker's Closed / Open / HalfOpen states
// map directly onto a three-state circuit, and its ReadyToTrip / Timeout
// settings map onto failure_threshold / reset_timeout.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/corexis/netkit"
)

// State mirrors gobreaker's three states.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Config is the circuit breaker configuration.
type Config struct {
	// Name identifies this breaker in logs.
	Name string
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold uint32
	// MaxRequests is the number of probe requests allowed through while
	// half-open.
	MaxRequests uint32
	// Interval is the cyclic window over which Closed-state counts reset
	// (0 disables the periodic reset).
	Interval time.Duration
	// Timeout is how long the circuit stays Open before probing
	// half-open (the reset timeout).
	Timeout time.Duration
}

// DefaultConfig returns a conservative default: 5 consecutive failures
// to trip, 1 half-open probe, 30s reset timeout.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		MaxRequests:      1,
		Timeout:          30 * time.Second,
	}
}

// Breaker wraps a gobreaker.TwoStepCircuitBreaker to satisfy
// netkit.Breaker directly.
type Breaker struct {
	cb *gobreaker.TwoStepCircuitBreaker
}

// New builds a Breaker from cfg.
func New(cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logStateChange(name, fromGobreaker(from), fromGobreaker(to))
		},
	}
	return &Breaker{cb: gobreaker.NewTwoStepCircuitBreaker(settings)}
}

func logStateChange(name string, from, to State) {
	level := slog.LevelDebug
	if to == StateOpen || to == StateClosed {
		level = slog.LevelInfo
	}
	netkit.GetLogger().Log(context.Background(), level, "circuit breaker state changed",
		"name", name, "from", string(from), "to", string(to))
}

// Allow satisfies netkit.Breaker. It returns a *netkit.Error with
// KindServiceUnavailable when the circuit is open or the half-open probe
// budget is exhausted.
func (b *Breaker) Allow() (func(success bool), error) {
	done, err := b.cb.Allow()
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, netkit.NewError(netkit.KindServiceUnavailable, "circuit breaker is open", err)
		}
		return nil, err
	}
	return done, nil
}

// State reports the breaker's current state.
func (b *Breaker) State() State {
	return fromGobreaker(b.cb.State())
}

var _ netkit.Breaker = (*Breaker)(nil)
