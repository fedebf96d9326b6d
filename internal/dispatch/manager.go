package dispatch

import (
	"sync"

	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/observability/metrics"
)

var (
	instance *Dispatcher
	once     sync.Once
	mu       sync.RWMutex
)

// Initialize sets up the global dispatcher instance
func Initialize(cfg Config, repo notification.Repository, m *metrics.DispatchMetrics) {
	once.Do(func() {
		instance = New(cfg, repo, m)
	})
}

// GetDispatcher returns the global dispatcher instance
func GetDispatcher() *Dispatcher {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// SetDispatcher allows setting a custom dispatcher instance (mainly for testing)
func SetDispatcher(d *Dispatcher) {
	mu.Lock()
	defer mu.Unlock()
	instance = d
}

// MustGetDispatcher returns the dispatcher instance or panics if not initialized
func MustGetDispatcher() *Dispatcher {
	d := GetDispatcher()
	if d == nil {
		panic("dispatcher not initialized")
	}
	return d
}

// IsInitialized checks if the dispatcher has been initialized
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return instance != nil
}
