package dispatch

import (
	"strings"
	"sync"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/observability/metrics"
)

// Channel is a named delivery capability: a transport paired with the
// circuit breaker guarding it. Channels are created by the registry at
// registration time and shared read-only afterwards.
type Channel struct {
	name      string
	transport notification.Transport
	breaker   *CircuitBreaker
}

// Name returns the channel identifier.
func (c *Channel) Name() string { return c.name }

// Transport returns the delivery capability behind the channel.
func (c *Channel) Transport() notification.Transport { return c.transport }

// Breaker returns the circuit breaker guarding the channel.
func (c *Channel) Breaker() *CircuitBreaker { return c.breaker }

// CanDeliver reports whether the channel's transport can reach the
// recipient. Transports that do not implement the capability check are
// assumed capable.
func (c *Channel) CanDeliver(recipient *notification.Recipient) bool {
	if checker, ok := c.transport.(notification.CapabilityChecker); ok {
		return checker.CanDeliver(recipient)
	}
	return true
}

// Registry is the process-wide table of delivery channels. Registration is
// intended to run during startup before dispatch begins; lookups afterwards
// are read-mostly and lock-cheap. List returns names in insertion order,
// stable across calls.
type Registry struct {
	mu            sync.RWMutex
	channels      map[string]*Channel
	order         []string
	breakerConfig CircuitBreakerConfig
	metrics       *metrics.DispatchMetrics
}

// NewRegistry creates an empty channel registry. Breakers for registered
// channels are created from breakerConfig; metrics may be nil.
func NewRegistry(breakerConfig CircuitBreakerConfig, dispatchMetrics *metrics.DispatchMetrics) *Registry {
	return &Registry{
		channels:      make(map[string]*Channel),
		breakerConfig: breakerConfig,
		metrics:       dispatchMetrics,
	}
}

// Register adds a transport under the given name, wrapping it with a fresh
// circuit breaker. Registration is idempotent by name with last-write-wins
// semantics: re-registering replaces the transport and resets the breaker,
// keeping the name's original position in the listing order. Transports
// implementing ConfigValidator are checked here.
func (r *Registry) Register(name string, transport notification.Transport) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.Newf("channel name is required").
			Component("dispatch").
			Category(errors.CategoryValidation).
			Build()
	}
	if transport == nil {
		return errors.Newf("channel %q has no transport", name).
			Component("dispatch").
			Category(errors.CategoryValidation).
			Context("channel", name).
			Build()
	}
	if validator, ok := transport.(notification.ConfigValidator); ok {
		if err := validator.ValidateConfig(); err != nil {
			return errors.New(err).
				Component("dispatch").
				Category(errors.CategoryConfiguration).
				Context("channel", name).
				Build()
		}
	}

	ch := &Channel{
		name:      name,
		transport: transport,
		breaker:   NewCircuitBreaker(r.breakerConfig, r.metrics, name),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.channels[name]; !exists {
		r.order = append(r.order, name)
	}
	r.channels[name] = ch

	getLogger().Info("channel registered",
		"channel", name,
		"transport", transport.Name(),
		"channels_total", len(r.order))
	return nil
}

// Resolve returns the channel registered under name, or an error wrapping
// notification.ErrUnknownChannel.
func (r *Registry) Resolve(name string) (*Channel, error) {
	r.mu.RLock()
	ch, ok := r.channels[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf("channel %q is not registered: %w", name, notification.ErrUnknownChannel).
			Component("dispatch").
			Category(errors.CategoryNotFound).
			Context("channel", name).
			Build()
	}
	return ch, nil
}

// List returns all registered channel names in insertion order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Channels returns all registered channels in insertion order.
func (r *Registry) Channels() []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Channel, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.channels[name])
	}
	return out
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
