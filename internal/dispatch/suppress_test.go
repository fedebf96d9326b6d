package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

func TestSuppressorDetectsDuplicates(t *testing.T) {
	t.Parallel()

	s := newSuppressor(time.Minute)

	n := testNotification(notification.CategoryWeather)
	assert.False(t, s.isDuplicate(n), "first submission is not a duplicate")
	assert.True(t, s.isDuplicate(n), "identical submission inside the window is suppressed")
}

func TestSuppressorKeySensitivity(t *testing.T) {
	t.Parallel()

	s := newSuppressor(time.Minute)

	base := testNotification(notification.CategoryWeather)
	assert.False(t, s.isDuplicate(base))

	// A different title is a different notification
	differentTitle := testNotification(notification.CategoryWeather)
	differentTitle.Title = "storm moved on"
	assert.False(t, s.isDuplicate(differentTitle))

	// Same title for another recipient is also distinct
	otherRecipient := testNotification(notification.CategoryWeather)
	otherRecipient.Recipient = &notification.Recipient{ID: "user-2", Name: "Grace", Email: "grace@example.org"}
	assert.False(t, s.isDuplicate(otherRecipient))

	// As is the same title under another category
	otherCategory := testNotification(notification.CategoryInfrastructure)
	assert.False(t, s.isDuplicate(otherCategory))
}

func TestSuppressorWindowExpiry(t *testing.T) {
	t.Parallel()

	// Real sleep: the go-cache janitor cannot run on a virtual clock
	s := newSuppressor(20 * time.Millisecond)

	n := testNotification(notification.CategoryWeather)
	assert.False(t, s.isDuplicate(n))
	assert.True(t, s.isDuplicate(n))

	time.Sleep(40 * time.Millisecond)
	assert.False(t, s.isDuplicate(n), "entries expire after the window")
}
