// Package transport implements the delivery channels behind the dispatch
// engine: email, SMS, push, MQTT, webhook, and script execution. Every
// transport satisfies notification.Transport; transports with per-recipient
// requirements also implement notification.CapabilityChecker so channel
// selection can skip recipients they cannot reach.
package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/logging"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

// Channel names the transports register under. The dispatcher's default
// channel and recipient preferences refer to these.
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelPush    = "push"
	ChannelMQTT    = "mqtt"
	ChannelWebhook = "webhook"
	ChannelScript  = "script"
)

// maxErrorBodySize limits how much of an HTTP error response is carried
// into error messages.
const maxErrorBodySize = 1024

// maxScriptOutput limits how much script output is carried into error
// messages.
const maxScriptOutput = 512

var (
	loggerOnce sync.Once
	logger     *slog.Logger
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		if l := logging.ForService("transport"); l != nil {
			logger = l
			return
		}
		logger = slog.Default().With("service", "transport")
	})
	return logger
}

// Setup builds every transport enabled in settings, in a stable order. A
// channel whose configuration cannot be resolved fails the whole setup:
// delivery channels are wired correctly at startup or not at all.
func Setup(settings *conf.Settings) ([]notification.Transport, error) {
	var transports []notification.Transport

	channels := &settings.Channels

	if channels.Email.Enabled {
		tr, err := NewEmailTransport(&channels.Email)
		if err != nil {
			return nil, fmt.Errorf("email channel: %w", err)
		}
		transports = append(transports, tr)
	}

	if channels.SMS.Enabled {
		tr, err := NewSMSTransport(&channels.SMS)
		if err != nil {
			return nil, fmt.Errorf("sms channel: %w", err)
		}
		transports = append(transports, tr)
	}

	if channels.Push.Enabled {
		transports = append(transports, NewPushTransport(&channels.Push))
	}

	if channels.MQTT.Enabled {
		tr, err := NewMQTTTransport(&channels.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt channel: %w", err)
		}
		transports = append(transports, tr)
	}

	if channels.Webhook.Enabled {
		tr, err := NewWebhookTransport(&channels.Webhook)
		if err != nil {
			return nil, fmt.Errorf("webhook channel: %w", err)
		}
		transports = append(transports, tr)
	}

	if channels.Script.Enabled {
		tr, err := NewScriptTransport(&channels.Script)
		if err != nil {
			return nil, fmt.Errorf("script channel: %w", err)
		}
		transports = append(transports, tr)
	}

	return transports, nil
}

// CloseAll releases connections held by transports that keep any. Called
// once at shutdown, after the dispatcher has drained.
func CloseAll(transports []notification.Transport) {
	for _, tr := range transports {
		if closer, ok := tr.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

// validateHTTPURL checks that raw parses as an absolute http or https URL.
func validateHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL host is required")
	}
	return nil
}

// statusRetryable reports whether an HTTP status suggests the request may
// succeed later. Server-side trouble and throttling are transient; other
// client errors mean the request itself is bad.
func statusRetryable(status int) bool {
	switch {
	case status >= http.StatusInternalServerError:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// truncate shortens s to maxLen runes of output, marking the cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
