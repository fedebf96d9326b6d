package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/observability/metrics"
	"github.com/Tresorkaseka/Flashnotify/internal/telemetry"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// StateClosed means the circuit is closed and calls flow normally.
	StateClosed CircuitState = iota
	// StateHalfOpen means the circuit is testing whether the channel recovered.
	StateHalfOpen
	// StateOpen means the circuit is open and calls are rejected.
	StateOpen
)

// String returns the string representation of CircuitState.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker rejects a call without
// invoking the transport: either the circuit is open and the cooldown has not
// elapsed, or a half-open trial is already in flight.
var ErrCircuitOpen = errors.Newf("circuit breaker is open").
	Component("dispatch").
	Category(errors.CategoryCircuitBreaker).
	Build()

// CircuitBreakerConfig holds configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening the circuit.
	MaxFailures int
	// Cooldown is how long the circuit stays open before a trial call is
	// permitted. The elapsed check is lazy: it happens on the next call
	// attempt, not via a background timer.
	Cooldown time.Duration
}

// DefaultCircuitBreakerConfig returns the default circuit breaker configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures: 5,
		Cooldown:    60 * time.Second,
	}
}

// Validate checks if the circuit breaker configuration is valid.
func (c CircuitBreakerConfig) Validate() error {
	if c.MaxFailures < 1 {
		return fmt.Errorf("max_failures must be at least 1, got %d", c.MaxFailures)
	}
	if c.Cooldown < time.Second {
		return fmt.Errorf("cooldown must be at least 1 second, got %v", c.Cooldown)
	}
	return nil
}

// CircuitBreaker guards one channel's transport. It tracks consecutive
// failures and opens the circuit once a threshold is reached, rejecting
// calls until the cooldown elapses; a single trial call then probes whether
// the channel recovered. The state is owned exclusively by the breaker and
// mutated only under its lock.
type CircuitBreaker struct {
	config          CircuitBreakerConfig
	state           CircuitState
	failures        int
	lastFailureTime time.Time
	lastStateChange time.Time
	trialInFlight   bool
	mu              sync.Mutex
	metrics         *metrics.DispatchMetrics
	channelName     string
}

// NewCircuitBreaker creates a breaker for the named channel. An invalid
// configuration is logged but still used, so tests can run with short
// cooldowns; production configs should pass validation.
func NewCircuitBreaker(config CircuitBreakerConfig, dispatchMetrics *metrics.DispatchMetrics, channelName string) *CircuitBreaker {
	if err := config.Validate(); err != nil {
		getLogger().Warn("circuit breaker config validation failed",
			"channel", channelName,
			"error", err)
	}

	cb := &CircuitBreaker{
		config:          config,
		state:           StateClosed,
		lastStateChange: time.Now(),
		metrics:         dispatchMetrics,
		channelName:     channelName,
	}

	if cb.metrics != nil {
		cb.metrics.UpdateCircuitBreakerState(channelName, int(StateClosed))
		cb.metrics.UpdateHealthStatus(channelName, true)
	}

	return cb
}

// Call executes fn if the breaker allows it. In the open state (cooldown not
// yet elapsed) Call returns ErrCircuitOpen immediately without invoking fn.
// Exactly one trial call runs in the half-open state; concurrent callers
// arriving during the trial also receive ErrCircuitOpen.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		state, failures := cb.State(), cb.Failures()
		return fmt.Errorf("circuit breaker rejected call (%v, %d consecutive failures): %w",
			state, failures, err)
	}

	err := fn(ctx)
	cb.afterCall(err)
	return err
}

// beforeCall checks whether the breaker admits the call.
func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		// Lazy cooldown check on the call path
		if time.Since(cb.lastStateChange) >= cb.config.Cooldown {
			cb.setState(StateHalfOpen)
			cb.trialInFlight = true
			return nil
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		if cb.trialInFlight {
			return ErrCircuitOpen
		}
		cb.trialInFlight = true
		return nil

	default:
		return ErrCircuitOpen
	}
}

// afterCall records the call outcome and updates state.
func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.trialInFlight = false
	}

	if err == nil {
		cb.onSuccess()
		return
	}

	// Client-side cancellation is not a channel failure; the breaker only
	// opens for actual transport problems.
	if errors.Is(err, context.Canceled) {
		return
	}

	cb.onFailure()
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failures = 0
	cb.lastFailureTime = time.Time{}

	if cb.metrics != nil {
		cb.metrics.UpdateHealthStatus(cb.channelName, true)
	}

	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailureTime = time.Now()

	if cb.metrics != nil {
		cb.metrics.IncrementConsecutiveFailures(cb.channelName)
	}

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
			if cb.metrics != nil {
				cb.metrics.UpdateHealthStatus(cb.channelName, false)
			}
		}

	case StateHalfOpen:
		// Failed trial reopens the circuit and restarts the cooldown
		cb.setState(StateOpen)
		if cb.metrics != nil {
			cb.metrics.UpdateHealthStatus(cb.channelName, false)
		}

	case StateOpen:
		// Already open, no action needed
	}
}

// setState transitions the breaker. Callers must hold cb.mu.
func (cb *CircuitBreaker) setState(newState CircuitState) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = time.Now()

	if cb.metrics != nil {
		cb.metrics.UpdateCircuitBreakerState(cb.channelName, int(newState))
	}

	getLogger().Info("circuit breaker state transition",
		"channel", cb.channelName,
		"old_state", oldState.String(),
		"new_state", newState.String(),
		"consecutive_failures", cb.failures)

	if newState == StateOpen {
		telemetry.CaptureMessage(
			fmt.Sprintf("channel %s circuit opened after %d consecutive failures",
				cb.channelName, cb.failures),
			sentry.LevelWarning, "dispatch")
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// IsOpen reports whether the breaker currently rejects calls. This is the
// health probe exposed to callers; it does not trigger the lazy cooldown
// transition.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state == StateOpen
}

// Failures returns the current number of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset manually resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.lastFailureTime = time.Time{}
	cb.trialInFlight = false
	cb.setState(StateClosed)

	if cb.metrics != nil {
		cb.metrics.UpdateHealthStatus(cb.channelName, true)
	}
}

// Stats returns a snapshot of the breaker's state.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerStats{
		State:           cb.state,
		Failures:        cb.failures,
		LastFailureTime: cb.lastFailureTime,
		LastStateChange: cb.lastStateChange,
		TrialInFlight:   cb.trialInFlight,
	}
}

// CircuitBreakerStats contains statistics about a circuit breaker's state.
type CircuitBreakerStats struct {
	State           CircuitState
	Failures        int
	LastFailureTime time.Time
	LastStateChange time.Time
	TrialInFlight   bool
}
