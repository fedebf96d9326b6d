package dispatch

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

// DefaultSuppressionWindow is how long an accepted request shadows
// identical follow-ups when suppression is enabled.
const DefaultSuppressionWindow = 5 * time.Minute

// suppressor drops requests that repeat a recently accepted one for the
// same recipient. Suppression is opt-in: when disabled every valid
// submission is processed.
type suppressor struct {
	window time.Duration
	seen   *cache.Cache
}

func newSuppressor(window time.Duration) *suppressor {
	if window <= 0 {
		window = DefaultSuppressionWindow
	}
	return &suppressor{
		window: window,
		seen:   cache.New(window, 2*window),
	}
}

// isDuplicate atomically records the request and reports whether an
// identical one was accepted within the window.
func (s *suppressor) isDuplicate(n *notification.Notification) bool {
	key := suppressKey(n)
	if err := s.seen.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		return true
	}
	return false
}

// forget releases a recorded request. Submissions rejected after the
// duplicate check (queue saturation) must not shadow later ones.
func (s *suppressor) forget(n *notification.Notification) {
	s.seen.Delete(suppressKey(n))
}

func suppressKey(n *notification.Notification) string {
	return fmt.Sprintf("%s|%s|%s", n.Recipient.ID, n.Category, n.Title)
}
