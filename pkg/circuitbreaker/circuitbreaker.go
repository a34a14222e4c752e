// Package circuitbreaker implements a three-state circuit breaker so a
// flaky backing service (the cache, mostly) cannot drag the engine down
// with it.
// No external dependencies - uses only standard library.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota
	// StateOpen rejects every request until the open timeout passes.
	StateOpen
	// StateHalfOpen lets a limited number of probe requests through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned while the circuit is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned when the half-open probe budget is spent.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config holds breaker parameters.
type Config struct {
	// Name identifies the breaker in state-change callbacks.
	Name string

	// FailureThreshold is the consecutive-failure count that opens the
	// circuit (default 5).
	FailureThreshold int

	// SuccessThreshold is the consecutive-success count in half-open
	// that closes the circuit (default 2).
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays open before probing
	// (default 30s).
	OpenTimeout time.Duration

	// HalfOpenProbes is how many requests may run in half-open
	// (default 1).
	HalfOpenProbes int

	// OnStateChange, when set, is called on every transition.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker tracks consecutive failures and cuts traffic to a
// backing service that keeps failing.
type CircuitBreaker struct {
	config Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probes    int
}

// New creates a breaker, filling zero config fields with defaults.
func New(config Config) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	if config.HalfOpenProbes <= 0 {
		config.HalfOpenProbes = 1
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// CacheBreaker returns a breaker tuned for the optional row cache: the
// cache failing is cheap, so the breaker opens generously and probes a
// few requests at a time when recovering.
func CacheBreaker(onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Config{
		Name:             "cache",
		FailureThreshold: 5,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
		HalfOpenProbes:   3,
		OnStateChange:    onStateChange,
	})
}

// Execute runs fn if the circuit allows it and records the outcome.
// A rejected request returns ErrCircuitOpen or ErrTooManyRequests
// without calling fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to closed with clean counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.probes = 0
	cb.mu.Unlock()

	cb.notify(from, StateClosed)
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()

	switch cb.state {
	case StateClosed:
		cb.mu.Unlock()
		return nil

	case StateOpen:
		if time.Since(cb.openedAt) < cb.config.OpenTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.successes = 0
		cb.probes = 1
		cb.mu.Unlock()
		cb.notify(StateOpen, StateHalfOpen)
		return nil

	default: // StateHalfOpen
		if cb.probes >= cb.config.HalfOpenProbes {
			cb.mu.Unlock()
			return ErrTooManyRequests
		}
		cb.probes++
		cb.mu.Unlock()
		return nil
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()

	if err == nil {
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				cb.state = StateClosed
				cb.failures = 0
				cb.probes = 0
				cb.mu.Unlock()
				cb.notify(StateHalfOpen, StateClosed)
				return
			}
		}
		cb.mu.Unlock()
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.openedAt = time.Now()
			cb.mu.Unlock()
			cb.notify(StateClosed, StateOpen)
			return
		}
	case StateHalfOpen:
		// One failed probe reopens the circuit.
		cb.state = StateOpen
		cb.openedAt = time.Now()
		cb.probes = 0
		cb.mu.Unlock()
		cb.notify(StateHalfOpen, StateOpen)
		return
	}
	cb.mu.Unlock()
}

// notify runs the state-change callback outside the lock.
func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
