package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures: 3,
		Cooldown:    50 * time.Millisecond,
	}
}

func openBreaker(t *testing.T, cb *CircuitBreaker, failures int) {
	t.Helper()

	for range failures {
		_ = cb.Call(context.Background(), func(_ context.Context) error {
			return assert.AnError
		})
	}
	require.Equal(t, StateOpen, cb.State(), "circuit should be open after %d failures", failures)
}

func TestCircuitBreakerClosedState(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(testBreakerConfig(), nil, "test-channel")

	assert.Equal(t, StateClosed, cb.State())

	// Successful calls keep the circuit closed
	for i := range 5 {
		err := cb.Call(t.Context(), func(_ context.Context) error {
			return nil
		})
		require.NoError(t, err, "call %d should succeed", i)
		assert.Equal(t, StateClosed, cb.State())
	}
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	config := testBreakerConfig()
	cb := NewCircuitBreaker(config, nil, "test-channel")

	testErr := errors.New("test error")

	// Failures up to threshold - 1 keep the circuit closed
	for i := range config.MaxFailures - 1 {
		err := cb.Call(t.Context(), func(_ context.Context) error {
			return testErr
		})
		require.ErrorIs(t, err, testErr, "call %d should return test error", i)
		assert.Equal(t, StateClosed, cb.State())
	}

	// One more failure opens the circuit
	err := cb.Call(t.Context(), func(_ context.Context) error {
		return testErr
	})
	require.ErrorIs(t, err, testErr)
	assert.Equal(t, StateOpen, cb.State())

	// Subsequent calls are rejected without invoking the function
	functionCalled := false
	err = cb.Call(t.Context(), func(_ context.Context) error {
		functionCalled = true
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, functionCalled, "function should not be called when circuit is open")
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(testBreakerConfig(), nil, "test-channel")

	// Two failures, then a success, then two more failures: the circuit
	// only counts consecutive failures and must stay closed.
	for range 2 {
		_ = cb.Call(t.Context(), func(_ context.Context) error { return assert.AnError })
	}
	require.Equal(t, 2, cb.Failures())

	require.NoError(t, cb.Call(t.Context(), func(_ context.Context) error { return nil }))
	assert.Equal(t, 0, cb.Failures())

	for range 2 {
		_ = cb.Call(t.Context(), func(_ context.Context) error { return assert.AnError })
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenAfterCooldown(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		config := testBreakerConfig()
		cb := NewCircuitBreaker(config, nil, "test-channel")

		openBreaker(t, cb, config.MaxFailures)

		// Before the cooldown elapses calls are still rejected
		err := cb.Call(t.Context(), func(_ context.Context) error { return nil })
		require.ErrorIs(t, err, ErrCircuitOpen)

		// Wait for the cooldown - instant with the virtual clock
		time.Sleep(config.Cooldown + 10*time.Millisecond)

		// The next call is the half-open trial; success closes the circuit
		callMade := false
		err = cb.Call(t.Context(), func(_ context.Context) error {
			callMade = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, callMade, "trial call should reach the function")
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, 0, cb.Failures())
	})
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		config := testBreakerConfig()
		cb := NewCircuitBreaker(config, nil, "test-channel")

		openBreaker(t, cb, config.MaxFailures)

		time.Sleep(config.Cooldown + 10*time.Millisecond)

		// A failed trial reopens the circuit for a fresh cooldown
		err := cb.Call(t.Context(), func(_ context.Context) error {
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, StateOpen, cb.State())

		// Still rejected before the new cooldown elapses
		err = cb.Call(t.Context(), func(_ context.Context) error { return nil })
		require.ErrorIs(t, err, ErrCircuitOpen)
	})
}

func TestCircuitBreakerSingleTrialInHalfOpen(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		config := testBreakerConfig()
		cb := NewCircuitBreaker(config, nil, "test-channel")

		openBreaker(t, cb, config.MaxFailures)

		time.Sleep(config.Cooldown + 10*time.Millisecond)

		// Launch several concurrent callers; exactly one may run the trial,
		// the rest are rejected while it is in flight.
		const callers = 4
		var wg sync.WaitGroup
		errChan := make(chan error, callers)
		blocker := make(chan struct{})

		for range callers {
			wg.Go(func() {
				errChan <- cb.Call(t.Context(), func(_ context.Context) error {
					<-blocker
					return nil
				})
			})
		}

		// Wait until the trial call blocks and the rest are rejected
		synctest.Wait()
		close(blocker)
		wg.Wait()
		close(errChan)

		succeeded := 0
		rejected := 0
		for err := range errChan {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrCircuitOpen):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}

		assert.Equal(t, 1, succeeded, "exactly one trial call should run")
		assert.Equal(t, callers-1, rejected, "remaining callers should be rejected")
		assert.Equal(t, StateClosed, cb.State(), "successful trial should close the circuit")
	})
}

func TestCircuitBreakerContextCancellationNotAFailure(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(testBreakerConfig(), nil, "test-channel")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := cb.Call(ctx, func(ctx context.Context) error {
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)

	// Cancellation is client-side and must not count against the channel
	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerReset(t *testing.T) {
	t.Parallel()

	config := testBreakerConfig()
	cb := NewCircuitBreaker(config, nil, "test-channel")

	openBreaker(t, cb, config.MaxFailures)

	cb.Reset()

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())

	err := cb.Call(t.Context(), func(_ context.Context) error { return nil })
	require.NoError(t, err)
}

func TestCircuitBreakerStats(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(testBreakerConfig(), nil, "test-channel")

	for range 2 {
		_ = cb.Call(t.Context(), func(_ context.Context) error { return assert.AnError })
	}

	stats := cb.Stats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Equal(t, 2, stats.Failures)
	assert.False(t, stats.LastFailureTime.IsZero(), "LastFailureTime should be set")
	assert.False(t, stats.TrialInFlight)
}

func TestCircuitBreakerConcurrentCalls(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 10, Cooldown: 100 * time.Millisecond}, nil, "test-channel")

		const numCalls = 100
		var wg sync.WaitGroup
		errChan := make(chan error, numCalls)
		for range numCalls {
			wg.Go(func() {
				err := cb.Call(t.Context(), func(_ context.Context) error {
					time.Sleep(time.Millisecond) // instant with the virtual clock
					return nil
				})
				if err != nil {
					errChan <- err
				}
			})
		}

		wg.Wait()
		close(errChan)

		for err := range errChan {
			t.Errorf("concurrent call failed: %v", err)
		}
		assert.Equal(t, StateClosed, cb.State())
	})
}

func TestCircuitBreakerStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
}
