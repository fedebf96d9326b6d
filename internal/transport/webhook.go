package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/httpclient"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/secrets"
)

// WebhookTransport posts notifications as JSON to a configured HTTP
// endpoint. Thread-safe for concurrent use.
type WebhookTransport struct {
	url         string
	method      string
	headers     map[string]string
	bearerToken string
	client      *httpclient.Client
}

// webhookPayload is the JSON body posted to the endpoint.
type webhookPayload struct {
	Recipient webhookRecipient `json:"recipient"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Timestamp string           `json:"timestamp"`
}

type webhookRecipient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitzero"`
	Phone string `json:"phone,omitzero"`
}

// NewWebhookTransport creates the webhook channel from configuration,
// resolving the bearer token and normalizing the HTTP method.
func NewWebhookTransport(cfg *conf.WebhookChannelSettings) (*WebhookTransport, error) {
	if err := validateHTTPURL(cfg.URL); err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodPost
	}
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
		return nil, fmt.Errorf("method must be POST, PUT, or PATCH, got %s", method)
	}

	token, err := secrets.Resolve(cfg.BearerTokenFile, cfg.BearerToken)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bearer token: %w", err)
	}

	clientCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		clientCfg.DefaultTimeout = cfg.Timeout
	}

	return &WebhookTransport{
		url:         cfg.URL,
		method:      method,
		headers:     maps.Clone(cfg.Headers),
		bearerToken: token,
		client:      httpclient.New(&clientCfg),
	}, nil
}

// Name returns the channel identifier the transport serves.
func (t *WebhookTransport) Name() string { return ChannelWebhook }

// Send posts the notification to the endpoint. Endpoint-side trouble and
// throttling are transient; other rejections are permanent.
func (t *WebhookTransport) Send(ctx context.Context, recipient *notification.Recipient, title, body string) error {
	payload := webhookPayload{
		Recipient: webhookRecipient{
			ID:    recipient.ID,
			Name:  recipient.Name,
			Email: recipient.Email,
			Phone: recipient.Phone,
		},
		Title:     title,
		Body:      body,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return notification.PermanentError(fmt.Errorf("failed to marshal webhook payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, t.method, t.url, bytes.NewReader(data))
	if err != nil {
		return notification.PermanentError(fmt.Errorf("failed to create webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}
	if t.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.bearerToken)
	}

	resp, err := t.client.Do(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("webhook request cancelled: %w", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return notification.RetryableError(fmt.Errorf("webhook request timed out: %w", err))
		}
		return notification.RetryableError(fmt.Errorf("webhook request failed: %w", err))
	}
	defer httpclient.DrainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		endpointErr := fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, truncate(string(detail), maxErrorBodySize))
		if statusRetryable(resp.StatusCode) {
			return notification.RetryableError(endpointErr)
		}
		return notification.PermanentError(endpointErr)
	}

	return nil
}

// Close releases the endpoint connection pool.
func (t *WebhookTransport) Close() {
	t.client.Close()
}
