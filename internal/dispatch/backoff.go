package dispatch

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes exponential retry delays with jitter. The zero value is
// not usable; construct with NewBackoff.
type Backoff struct {
	// Base is the delay before the first retry
	Base time.Duration
	// Max caps the computed delay
	Max time.Duration
	// Factor is the exponential growth multiplier
	Factor float64
	// Jitter is the random spread applied to the delay, 0.1 means +-10%
	Jitter float64
}

// NewBackoff returns a backoff with the given base and cap, growth factor 2
// and 10% jitter. Non-positive arguments fall back to 500ms and 30s.
func NewBackoff(base, maxDelay time.Duration) *Backoff {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	return &Backoff{
		Base:   base,
		Max:    maxDelay,
		Factor: 2.0,
		Jitter: 0.1,
	}
}

// NextDelay returns the delay before retry round `round`, starting at 1 for
// the first retry: base * factor^(round-1), capped at Max, spread by the
// jitter factor to avoid coordinated retry storms.
func (b *Backoff) NextDelay(round int) time.Duration {
	if round < 1 {
		round = 1
	}

	delay := float64(b.Base) * math.Pow(b.Factor, float64(round-1))
	if delay > float64(b.Max) {
		delay = float64(b.Max)
	}

	if b.Jitter > 0 {
		spread := (rand.Float64()*2 - 1) * b.Jitter
		delay *= 1 + spread
	}

	if delay < float64(time.Millisecond) {
		delay = float64(time.Millisecond)
	}
	return time.Duration(delay)
}
