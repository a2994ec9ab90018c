// Package resilience provides reliability patterns for external service calls.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the position of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
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
	}
	return "unknown"
}

// Breaker guards one external dependency, such as a tenant's calendar or the
// SMTP relay. It opens after maxFailures consecutive failures and rejects calls
// until the timeout elapses, then lets a single trial call through.
type Breaker struct {
	name        string
	maxFailures int
	timeout     time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time

	// ignore reports errors that say nothing about the dependency's health.
	ignore   func(error) bool
	onChange func(name string, from, to State)
	now      func() time.Time // for testing
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithIgnore makes the breaker treat errors matching fn as successes.
// Context cancellation is always ignored.
func WithIgnore(fn func(error) bool) Option {
	return func(b *Breaker) { b.ignore = fn }
}

// WithStateChange registers a callback invoked on every state transition.
func WithStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

// NewBreaker creates a named circuit breaker.
func NewBreaker(name string, maxFailures int, timeout time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		name:        name,
		maxFailures: maxFailures,
		timeout:     timeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the dependency this breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, moving open to half-open once the
// timeout has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.timeout {
		return StateHalfOpen
	}
	return b.state
}

// Execute runs fn if the circuit is closed or half-open.
// Returns ErrCircuitOpen if the circuit is open.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && !b.ignored(err) {
		b.onFailure()
		return err
	}

	b.onSuccess()
	return err
}

func (b *Breaker) ignored(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return b.ignore != nil && b.ignore(err)
}

func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.timeout {
			b.setState(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return true
	}
	return false
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.openedAt = b.now()
		b.setState(StateOpen)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	b.failures = 0
	b.setState(StateClosed)
}

// setState must be called with b.mu held.
func (b *Breaker) setState(to State) {
	from := b.state
	b.state = to
	if from != to && b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
