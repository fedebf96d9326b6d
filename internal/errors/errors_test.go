package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	t.Parallel()

	err := Newf("delivery to channel %s failed", "email").
		Component("dispatch").
		Category(CategoryTransport).
		Context("channel", "email").
		Build()

	require.NotNil(t, err)
	assert.Equal(t, "delivery to channel email failed", err.Error())
	assert.Equal(t, "dispatch", err.GetComponent())
	assert.Equal(t, CategoryTransport, err.Category)
	assert.Equal(t, "email", err.GetContext()["channel"])
	assert.False(t, err.GetTimestamp().IsZero())
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("queue is full")
	wrapped := New(sentinel).Category(CategoryQueue).Build()

	assert.True(t, Is(wrapped, sentinel))

	var enhanced *EnhancedError
	require.True(t, As(wrapped, &enhanced))
	assert.Equal(t, CategoryQueue, enhanced.Category)
}

func TestCategoryMatching(t *testing.T) {
	t.Parallel()

	err := Newf("circuit breaker is open").Category(CategoryCircuitBreaker).Build()
	assert.True(t, IsCategory(err, CategoryCircuitBreaker))
	assert.False(t, IsCategory(err, CategoryQueue))
	assert.False(t, IsCategory(NewStd("plain"), CategoryQueue))
}

func TestDetectCategoryHeuristics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		message  string
		expected ErrorCategory
	}{
		{"circuit", "circuit breaker tripped", CategoryCircuitBreaker},
		{"queue", "queue full, rejecting task", CategoryQueue},
		{"template", "missing template variable zone", CategoryTemplate},
		{"timeout", "operation timeout exceeded", CategoryTimeout},
		{"validation", "invalid phone number", CategoryValidation},
		{"network", "connection refused", CategoryNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := detectCategory(NewStd(tt.message), "")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestComponentRegistryFallback(t *testing.T) {
	t.Parallel()

	// Unregistered paths fall back to the package segment of the symbol name
	got := lookupComponent("github.com/Tresorkaseka/Flashnotify/internal/widget.doThing")
	assert.Equal(t, "widget", got)
}

func TestPriorityValidation(t *testing.T) {
	t.Parallel()

	err := Newf("boom").Priority("bogus").Build()
	assert.Equal(t, PriorityMedium, err.GetPriority())

	err = Newf("boom").Priority(PriorityCritical).Build()
	assert.Equal(t, PriorityCritical, err.GetPriority())

	err = Newf("boom").Build()
	assert.Empty(t, err.GetPriority())
}

func TestValidationErrorHelper(t *testing.T) {
	t.Parallel()

	err := ValidationError("title must not be empty")
	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, "title must not be empty", err.Error())
}
