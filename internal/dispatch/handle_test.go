package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

func TestHandleResolve(t *testing.T) {
	t.Parallel()

	h := newHandle("abc")
	assert.Equal(t, "abc", h.ID())

	_, ok := h.Result()
	assert.False(t, ok, "unresolved handle has no result")

	want := &notification.DispatchResult{ID: "abc", Status: notification.StatusSent}
	h.resolve(want)

	select {
	case <-h.Done():
	default:
		t.Fatal("Done channel should be closed after resolve")
	}

	got, ok := h.Result()
	require.True(t, ok)
	assert.Same(t, want, got)
}

func TestHandleResolveIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHandle("abc")

	first := &notification.DispatchResult{ID: "abc", Status: notification.StatusSent}
	h.resolve(first)
	h.resolve(&notification.DispatchResult{ID: "abc", Status: notification.StatusFailed})

	got, ok := h.Result()
	require.True(t, ok)
	assert.Same(t, first, got, "first resolution wins")
}

func TestHandleWait(t *testing.T) {
	t.Parallel()

	h := newHandle("abc")
	want := &notification.DispatchResult{ID: "abc", Status: notification.StatusSent}
	h.resolve(want)

	got, err := h.Wait(t.Context())
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestHandleWaitHonorsContext(t *testing.T) {
	t.Parallel()

	h := newHandle("abc")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := h.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
