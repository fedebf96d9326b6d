package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/httpclient"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/secrets"
)

// SMSTransport delivers notifications through an HTTP SMS gateway speaking
// JSON: a POST carrying sender id, destination number, and message text.
// Any 2xx response means the gateway accepted the message.
type SMSTransport struct {
	gatewayURL string
	apiKey     string
	from       string
	client     *httpclient.Client
}

// smsMessage is the JSON body posted to the gateway.
type smsMessage struct {
	From string `json:"from,omitzero"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// NewSMSTransport creates the SMS channel from configuration. The API key
// is resolved from its file or environment reference; gateways inside a
// trusted network may run without one.
func NewSMSTransport(cfg *conf.SMSChannelSettings) (*SMSTransport, error) {
	if err := validateHTTPURL(cfg.GatewayURL); err != nil {
		return nil, fmt.Errorf("gateway URL: %w", err)
	}

	apiKey, err := secrets.Resolve(cfg.APIKeyFile, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gateway API key: %w", err)
	}

	clientCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		clientCfg.DefaultTimeout = cfg.Timeout
	}

	return &SMSTransport{
		gatewayURL: cfg.GatewayURL,
		apiKey:     apiKey,
		from:       cfg.From,
		client:     httpclient.New(&clientCfg),
	}, nil
}

// Name returns the channel identifier the transport serves.
func (t *SMSTransport) Name() string { return ChannelSMS }

// CanDeliver reports whether the recipient carries a phone number.
func (t *SMSTransport) CanDeliver(recipient *notification.Recipient) bool {
	return recipient.HasPhone()
}

// Send posts one message to the gateway. Gateway-side trouble and
// throttling are transient; other rejections are permanent.
func (t *SMSTransport) Send(ctx context.Context, recipient *notification.Recipient, title, body string) error {
	msg := smsMessage{
		From: t.from,
		To:   recipient.Phone,
		Text: title + "\n" + body,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return notification.PermanentError(fmt.Errorf("failed to marshal SMS payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return notification.PermanentError(fmt.Errorf("failed to create gateway request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("gateway request cancelled: %w", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return notification.RetryableError(fmt.Errorf("gateway request timed out: %w", err))
		}
		return notification.RetryableError(fmt.Errorf("gateway request failed: %w", err))
	}
	defer httpclient.DrainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		gatewayErr := fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, truncate(string(detail), maxErrorBodySize))
		if statusRetryable(resp.StatusCode) {
			return notification.RetryableError(gatewayErr)
		}
		return notification.PermanentError(gatewayErr)
	}

	getLogger().Debug("sms accepted by gateway",
		"to", recipient.Phone,
		"status", resp.StatusCode)
	return nil
}

// Close releases the gateway connection pool.
func (t *SMSTransport) Close() {
	t.client.Close()
}
