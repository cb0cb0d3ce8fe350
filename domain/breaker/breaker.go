// Package breaker implements a per-named-backend circuit breaker state
// machine, modeled on the teacher's mutex-protected cooldown tracker.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// State is the circuit breaker's closed state set.
type State string

// Closed set of breaker states.
const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrOpen is returned when a call short-circuits because the breaker is
// open, distinguishable from the underlying action's own failures.
var ErrOpen = errors.New("circuit breaker is open")

// Config configures a Breaker's thresholds.
type Config struct {
	Threshold    int
	ResetTimeout time.Duration
}

// DefaultConfig returns the default threshold (5) and reset timeout (60s).
func DefaultConfig() Config {
	return Config{Threshold: 5, ResetTimeout: 60 * time.Second}
}

// Breaker is a single named backend's circuit breaker. It is a small
// mutex-protected struct; no lock is ever held across the wrapped call.
type Breaker struct {
	name   string
	cfg    Config
	mu     sync.Mutex
	state  State
	failures int
	openedAt time.Time
}

// New constructs a Breaker for the given backend name.
func New(name string, cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig().ResetTimeout
	}
	return &Breaker{name: name, cfg: cfg, state: StateClosed}
}

// Name returns the backend name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the breaker's current state. The only transition it makes
// as a side effect of observation is OPEN -> HALF_OPEN once reset_timeout
// has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() State {
	if b.state == StateOpen && time.Since(b.openedAt) >= b.cfg.ResetTimeout {
		b.state = StateHalfOpen
	}
	return b.state
}

// allow reports whether a call may proceed, and if so transitions into
// HALF_OPEN as needed. Returns ErrOpen if the call should short-circuit.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stateLocked() == StateOpen {
		return ErrOpen
	}
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = time.Now()
		b.failures = b.cfg.Threshold
	default:
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.state = StateOpen
			b.openedAt = time.Now()
		}
	}
}

// Call executes fn if the breaker permits it, recording success/failure.
// No lock is held while fn runs.
func (b *Breaker) Call(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}
