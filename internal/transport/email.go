package transport

import (
	"context"
	"fmt"
	"regexp"

	"github.com/k3a/html2text"
	"github.com/mrz1836/postmark"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/secrets"
)

// postmarkSender is the slice of the Postmark API the email transport
// uses. Tests substitute a recording fake here.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// EmailTransport delivers notifications through the Postmark transactional
// API. Bodies carrying HTML markup go out as HTML with a plain-text
// alternative derived from the markup, so text-only mail clients stay
// readable.
type EmailTransport struct {
	client  postmarkSender
	from    string
	replyTo string
}

// NewEmailTransport creates the email channel from configuration. The
// server token is resolved from its file or environment reference at
// construction time; a missing token fails here rather than at first send.
func NewEmailTransport(cfg *conf.EmailChannelSettings) (*EmailTransport, error) {
	serverToken, err := secrets.MustResolve("postmark server token", cfg.ServerTokenFile, cfg.ServerToken)
	if err != nil {
		return nil, err
	}
	accountToken, err := secrets.Resolve("", cfg.AccountToken)
	if err != nil {
		return nil, err
	}

	if cfg.From == "" {
		return nil, fmt.Errorf("sender address is required")
	}
	if !notification.ValidEmail(cfg.From) {
		return nil, fmt.Errorf("invalid sender address %q", cfg.From)
	}
	if cfg.ReplyTo != "" && !notification.ValidEmail(cfg.ReplyTo) {
		return nil, fmt.Errorf("invalid reply-to address %q", cfg.ReplyTo)
	}

	return &EmailTransport{
		client:  postmark.NewClient(serverToken, accountToken),
		from:    cfg.From,
		replyTo: cfg.ReplyTo,
	}, nil
}

// Name returns the channel identifier the transport serves.
func (t *EmailTransport) Name() string { return ChannelEmail }

// CanDeliver reports whether the recipient carries an email address.
func (t *EmailTransport) CanDeliver(recipient *notification.Recipient) bool {
	return recipient.HasEmail()
}

// Send delivers one notification as a transactional email. Request-level
// failures (network, timeout) are transient; API-level rejections are
// configuration or recipient problems and will not succeed on retry.
func (t *EmailTransport) Send(ctx context.Context, recipient *notification.Recipient, title, body string) error {
	email := postmark.Email{
		From:    t.from,
		ReplyTo: t.replyTo,
		To:      recipient.Email,
		Subject: title,
	}
	if looksLikeHTML(body) {
		email.HTMLBody = body
		email.TextBody = html2text.HTML2Text(body)
	} else {
		email.TextBody = body
	}

	resp, err := t.client.SendEmail(ctx, email)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("email send cancelled: %w", ctx.Err())
		}
		return notification.RetryableError(fmt.Errorf("postmark request failed: %w", err))
	}
	if resp.ErrorCode > 0 {
		return notification.PermanentError(fmt.Errorf("postmark rejected message: %d - %s", resp.ErrorCode, resp.Message))
	}

	getLogger().Debug("email sent",
		"to", recipient.Email,
		"message_id", resp.MessageID)
	return nil
}

// htmlTagPattern matches an opening HTML tag, enough to tell rendered
// markup from plain text containing angle brackets.
var htmlTagPattern = regexp.MustCompile(`(?i)<[a-z][a-z0-9-]*(\s[^>]*)?>`)

func looksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}
