package dispatch

import "time"

// ChannelHealth is a point-in-time snapshot of one delivery channel.
type ChannelHealth struct {
	Name            string        `json:"name"`
	Healthy         bool          `json:"healthy"`
	CircuitState    string        `json:"circuit_state"`
	Failures        int           `json:"consecutive_failures"`
	AverageDuration time.Duration `json:"average_duration"`
	LastFailure     time.Time     `json:"last_failure,omitempty"`
}

// Health reports the state of every registered channel in registration
// order. A channel is healthy while its circuit breaker admits calls.
func (d *Dispatcher) Health() []ChannelHealth {
	channels := d.registry.Channels()
	health := make([]ChannelHealth, 0, len(channels))
	for _, ch := range channels {
		stats := ch.Breaker().Stats()
		health = append(health, ChannelHealth{
			Name:            ch.Name(),
			Healthy:         stats.State != StateOpen,
			CircuitState:    stats.State.String(),
			Failures:        stats.Failures,
			AverageDuration: d.recorder.Average(ch.Name()),
			LastFailure:     stats.LastFailureTime,
		})
	}
	return health
}

// Healthy reports whether at least one registered channel currently admits
// calls. An empty registry is unhealthy.
func (d *Dispatcher) Healthy() bool {
	for _, ch := range d.registry.Channels() {
		if !ch.Breaker().IsOpen() {
			return true
		}
	}
	return false
}
