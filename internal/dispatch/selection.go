package dispatch

import (
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

// ErrNoDeliverableChannels is returned when a critical broadcast finds no
// registered channel able to reach the recipient.
var ErrNoDeliverableChannels = errors.Newf("no deliverable channels for recipient").
	Component("dispatch").
	Category(errors.CategoryDispatch).
	Build()

// Selector decides which channels a task attempts. The decision is a pure
// function of the priority, the request's channel hints, and the registry
// contents; it keeps no state of its own.
type Selector struct {
	registry       *Registry
	defaultChannel string
}

// NewSelector creates a selector using defaultChannel for requests without
// a usable channel preference.
func NewSelector(registry *Registry, defaultChannel string) *Selector {
	return &Selector{registry: registry, defaultChannel: defaultChannel}
}

// Select returns the channel set to attempt, in registration order.
//
// Critical requests broadcast to every registered channel able to reach the
// recipient. All other priorities pick exactly one channel: the request's
// explicit override if present (which must be registered), else the
// recipient's preferred channel when registered, else the configured
// default.
func (s *Selector) Select(priority notification.Priority, n *notification.Notification) ([]*Channel, error) {
	if priority == notification.PriorityCritical {
		return s.broadcast(n.Recipient)
	}
	return s.single(n)
}

func (s *Selector) broadcast(recipient *notification.Recipient) ([]*Channel, error) {
	var out []*Channel
	for _, ch := range s.registry.Channels() {
		if !ch.CanDeliver(recipient) {
			getLogger().Debug("skipping channel for broadcast, recipient not reachable",
				"channel", ch.Name(),
				"recipient_id", recipient.ID)
			continue
		}
		out = append(out, ch)
	}
	if len(out) == 0 {
		return nil, errors.Newf("no registered channel can reach recipient %s: %w",
			recipient.ID, ErrNoDeliverableChannels).
			Component("dispatch").
			Category(errors.CategoryDispatch).
			Context("recipient_id", recipient.ID).
			Build()
	}
	return out, nil
}

func (s *Selector) single(n *notification.Notification) ([]*Channel, error) {
	// An explicit override is caller intent: unknown names are surfaced,
	// not silently substituted.
	if n.Channel != "" {
		ch, err := s.registry.Resolve(n.Channel)
		if err != nil {
			return nil, err
		}
		return []*Channel{ch}, nil
	}

	// A soft preference falls back to the default when unregistered.
	if pref := n.Recipient.PreferredChannel; pref != "" {
		if ch, err := s.registry.Resolve(pref); err == nil {
			return []*Channel{ch}, nil
		}
		getLogger().Debug("preferred channel not registered, using default",
			"preferred", pref,
			"default", s.defaultChannel,
			"recipient_id", n.Recipient.ID)
	}

	ch, err := s.registry.Resolve(s.defaultChannel)
	if err != nil {
		return nil, err
	}
	return []*Channel{ch}, nil
}
