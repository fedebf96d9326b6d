package transport

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/privacy"
)

// PushTransport fans a notification out to push services (ntfy, gotify,
// telegram, discord, ...) through shoutrrr service URLs. A single router
// serves all configured URLs.
type PushTransport struct {
	urls    []string
	timeout time.Duration
	sender  *router.ServiceRouter
}

// NewPushTransport creates the push channel. The service router is built
// in ValidateConfig so URL problems surface at registration.
func NewPushTransport(cfg *conf.PushChannelSettings) *PushTransport {
	return &PushTransport{
		urls:    slices.Clone(cfg.URLs),
		timeout: cfg.Timeout,
	}
}

// Name returns the channel identifier the transport serves.
func (t *PushTransport) Name() string { return ChannelPush }

// ValidateConfig builds the shoutrrr sender, verifying every service URL.
func (t *PushTransport) ValidateConfig() error {
	if len(t.urls) == 0 {
		return fmt.Errorf("at least one service URL is required")
	}
	sender, err := shoutrrr.CreateSender(t.urls...)
	if err != nil {
		// Service URLs embed tokens; scrub before the error leaves the transport.
		return privacy.WrapError(err)
	}
	t.sender = sender
	if t.timeout > 0 {
		t.sender.Timeout = t.timeout
	}
	t.sender.SetLogger(log.New(io.Discard, "", 0))
	return nil
}

// Send pushes the notification to every configured service URL. Push
// services are shared destinations, so the recipient's contact details are
// not consulted here.
func (t *PushTransport) Send(ctx context.Context, _ *notification.Recipient, title, body string) error {
	if t.sender == nil {
		return notification.PermanentError(fmt.Errorf("push sender not initialized"))
	}
	_ = ctx // the router applies its own per-service timeout

	params := stypes.Params{}
	params.SetTitle(title)

	errs := t.sender.Send(body, &params)
	for _, err := range errs {
		if err != nil {
			return notification.RetryableError(privacy.WrapError(err))
		}
	}
	return nil
}
