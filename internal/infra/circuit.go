// Package infra provides the process-wide circuit breakers and the timeout
// and concurrency policy shared by every outbound tool call.
package infra

import (
	"context"
	"sync"
	"time"

	"github.com/ojashyadav101/lucy/internal/errkind"
)

// Circuit breaker states.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// BreakerConfig configures a CircuitBreaker. Defaults mirror the per-service
// thresholds used for outbound integrations: a handful of failures opens
// the circuit for roughly a minute before a single probe is allowed
// through.
type BreakerConfig struct {
	Name             string
	FailureThreshold int
	CooldownSeconds  float64
}

// CircuitBreaker guards a single downstream service. It tracks CLOSED,
// OPEN, and HALF_OPEN states and allows at most one in-flight probe while
// half-open: concurrent callers that arrive while a probe is outstanding are
// rejected rather than all being let through, which would defeat the point
// of the cooldown.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu             sync.Mutex
	state          string
	failureCount   int
	lastFailureAt  time.Time
	probeInFlight  bool
}

// NewCircuitBreaker builds a breaker in the closed state.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CooldownSeconds <= 0 {
		cfg.CooldownSeconds = 60
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// State returns the breaker's current state, resolving an elapsed cooldown
// into half_open as a side effect (matching Python's is_half_open
// property-based transition).
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() string {
	if cb.state == StateOpen && time.Since(cb.lastFailureAt).Seconds() >= cb.cfg.CooldownSeconds {
		cb.state = StateHalfOpen
	}
	return cb.state
}

// allow decides whether a new call may proceed, and if so whether it is the
// half-open probe.
func (cb *CircuitBreaker) allow() (ok bool, isProbe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.stateLocked() {
	case StateClosed:
		return true, false
	case StateHalfOpen:
		if cb.probeInFlight {
			return false, false
		}
		cb.probeInFlight = true
		return true, true
	default: // open
		return false, false
	}
}

func (cb *CircuitBreaker) recordSuccess(wasProbe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if wasProbe {
		cb.probeInFlight = false
	}
	cb.failureCount = 0
	cb.state = StateClosed
}

func (cb *CircuitBreaker) recordFailure(wasProbe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if wasProbe {
		cb.probeInFlight = false
	}
	cb.failureCount++
	cb.lastFailureAt = time.Now()
	if cb.failureCount >= cb.cfg.FailureThreshold || wasProbe {
		cb.state = StateOpen
	}
}

// Execute runs fn under breaker protection, short-circuiting with
// errkind.CircuitOpen when the breaker is open or a probe is already
// in-flight.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	ok, isProbe := cb.allow()
	if !ok {
		return errkind.New(errkind.CircuitOpen, cb.cfg.Name+" circuit is open")
	}
	err := fn(ctx)
	if err != nil {
		cb.recordFailure(isProbe)
		return err
	}
	cb.recordSuccess(isProbe)
	return nil
}

// ExecuteWithResult runs a value-returning fn under breaker protection.
func ExecuteWithResult[T any](cb *CircuitBreaker, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	ok, isProbe := cb.allow()
	if !ok {
		return zero, errkind.New(errkind.CircuitOpen, cb.cfg.Name+" circuit is open")
	}
	result, err := fn(ctx)
	if err != nil {
		cb.recordFailure(isProbe)
		return zero, err
	}
	cb.recordSuccess(isProbe)
	return result, nil
}

// DefaultBreakerConfigs mirrors the known outbound integrations' thresholds:
// a handful of failures within the cooldown window opens each circuit
// independently.
func DefaultBreakerConfigs() map[string]BreakerConfig {
	return map[string]BreakerConfig{
		"meta_broker": {Name: "meta_broker", FailureThreshold: 5, CooldownSeconds: 60},
		"model_openai": {Name: "model_openai", FailureThreshold: 5, CooldownSeconds: 60},
		"model_anthropic": {Name: "model_anthropic", FailureThreshold: 5, CooldownSeconds: 60},
		"model_bedrock": {Name: "model_bedrock", FailureThreshold: 3, CooldownSeconds: 30},
		"model_genai": {Name: "model_genai", FailureThreshold: 3, CooldownSeconds: 30},
		"chat_channel": {Name: "chat_channel", FailureThreshold: 3, CooldownSeconds: 30},
	}
}

// Registry owns one CircuitBreaker per named service, created lazily on
// first use.
type Registry struct {
	mu       sync.Mutex
	configs  map[string]BreakerConfig
	breakers map[string]*CircuitBreaker
}

// NewRegistry builds a Registry seeded with configs (falling back to a
// generic default for any service requested but not preconfigured).
func NewRegistry(configs map[string]BreakerConfig) *Registry {
	return &Registry{configs: configs, breakers: map[string]*CircuitBreaker{}}
}

// Get returns the breaker for service, creating it on first use.
func (r *Registry) Get(service string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[service]; ok {
		return cb
	}
	cfg, ok := r.configs[service]
	if !ok {
		cfg = BreakerConfig{Name: service}
	}
	cb := NewCircuitBreaker(cfg)
	r.breakers[service] = cb
	return cb
}
