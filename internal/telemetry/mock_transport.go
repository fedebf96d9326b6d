package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// MockTransport implements sentry.Transport for testing. Events are kept in
// memory instead of being sent anywhere.
type MockTransport struct {
	mu     sync.RWMutex
	events []*sentry.Event
}

// NewMockTransport creates a new mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		events: make([]*sentry.Event, 0),
	}
}

// Configure implements sentry.Transport.
//
//nolint:gocritic // hugeParam: interface requirement, cannot change signature
func (t *MockTransport) Configure(_ sentry.ClientOptions) {}

// SendEvent implements sentry.Transport.
func (t *MockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

// Flush implements sentry.Transport.
func (t *MockTransport) Flush(time.Duration) bool {
	return true
}

// FlushWithContext implements sentry.Transport.
func (t *MockTransport) FlushWithContext(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
		return true
	}
}

// Close implements sentry.Transport.
func (t *MockTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

// Events returns a copy of the captured events.
func (t *MockTransport) Events() []*sentry.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	events := make([]*sentry.Event, len(t.events))
	copy(events, t.events)
	return events
}

// EventCount returns the number of captured events.
func (t *MockTransport) EventCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events)
}

// LastEvent returns the most recent event, or nil when nothing was captured.
func (t *MockTransport) LastEvent() *sentry.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.events) == 0 {
		return nil
	}
	return t.events[len(t.events)-1]
}

// FindEventByMessage returns the first event with the given message, or nil.
func (t *MockTransport) FindEventByMessage(message string) *sentry.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, event := range t.events {
		if event.Message == message {
			return event
		}
	}
	return nil
}

// Clear removes all captured events.
func (t *MockTransport) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = t.events[:0]
}
