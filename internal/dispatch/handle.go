package dispatch

import (
	"context"
	"sync"

	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

// Handle tracks one accepted submission through to its terminal result.
// A handle resolves exactly once; every accepted task resolves eventually,
// results are never silently dropped.
type Handle struct {
	id     string
	done   chan struct{}
	once   sync.Once
	result *notification.DispatchResult
}

func newHandle(id string) *Handle {
	return &Handle{id: id, done: make(chan struct{})}
}

// ID returns the request identifier the handle tracks.
func (h *Handle) ID() string { return h.id }

// Done returns a channel closed when the terminal result is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result returns the terminal result without blocking. The second return is
// false while the task is still in flight.
func (h *Handle) Result() (*notification.DispatchResult, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return nil, false
	}
}

// Wait blocks until the terminal result is available or ctx is done.
func (h *Handle) Wait(ctx context.Context) (*notification.DispatchResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve publishes the terminal result. Safe to call more than once; only
// the first call wins.
func (h *Handle) resolve(result *notification.DispatchResult) {
	h.once.Do(func() {
		h.result = result
		close(h.done)
	})
}
