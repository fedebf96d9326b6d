package transport

import (
	"context"
	"sync"
	"testing"

	"github.com/k3a/html2text"
	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

// fakePostmark records sent emails and plays back a configured response.
type fakePostmark struct {
	mu    sync.Mutex
	sent  []postmark.Email
	reply postmark.EmailResponse
	err   error
}

func (f *fakePostmark) SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return postmark.EmailResponse{}, err
	}
	if f.err != nil {
		return postmark.EmailResponse{}, f.err
	}
	f.sent = append(f.sent, email)
	return f.reply, nil
}

func (f *fakePostmark) lastSent(t *testing.T) postmark.Email {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func emailConfig() conf.EmailChannelSettings {
	return conf.EmailChannelSettings{
		Enabled:     true,
		ServerToken: "pm-server-token",
		From:        "alerts@example.org",
	}
}

func TestNewEmailTransport_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*conf.EmailChannelSettings)
		wantErr string
	}{
		{
			name:    "missing server token",
			mutate:  func(c *conf.EmailChannelSettings) { c.ServerToken = "" },
			wantErr: "postmark server token",
		},
		{
			name:    "missing sender",
			mutate:  func(c *conf.EmailChannelSettings) { c.From = "" },
			wantErr: "sender address is required",
		},
		{
			name:    "invalid sender",
			mutate:  func(c *conf.EmailChannelSettings) { c.From = "not-an-address" },
			wantErr: "invalid sender address",
		},
		{
			name:    "invalid reply-to",
			mutate:  func(c *conf.EmailChannelSettings) { c.ReplyTo = "broken@" },
			wantErr: "invalid reply-to address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := emailConfig()
			tt.mutate(&cfg)
			_, err := NewEmailTransport(&cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewEmailTransport_ResolvesTokenFromEnv(t *testing.T) {
	t.Setenv("FLASHNOTIFY_TEST_PM_TOKEN", "pm-from-env")

	cfg := emailConfig()
	cfg.ServerToken = "${FLASHNOTIFY_TEST_PM_TOKEN}"

	tr, err := NewEmailTransport(&cfg)
	require.NoError(t, err)
	assert.Equal(t, ChannelEmail, tr.Name())
}

func TestEmailTransport_CanDeliver(t *testing.T) {
	t.Parallel()

	tr := &EmailTransport{from: "alerts@example.org"}
	assert.True(t, tr.CanDeliver(testRecipient()))
	assert.False(t, tr.CanDeliver(&notification.Recipient{ID: "u2", Name: "No Mail", Phone: "+15550100300"}))
}

func TestEmailTransport_SendPlainText(t *testing.T) {
	t.Parallel()

	fake := &fakePostmark{reply: postmark.EmailResponse{MessageID: "msg-1"}}
	tr := &EmailTransport{client: fake, from: "alerts@example.org", replyTo: "support@example.org"}

	err := tr.Send(t.Context(), testRecipient(), "[WEATHER] Storm warning", "Campus closes at noon.")
	require.NoError(t, err)

	sent := fake.lastSent(t)
	assert.Equal(t, "alerts@example.org", sent.From)
	assert.Equal(t, "support@example.org", sent.ReplyTo)
	assert.Equal(t, "ada@example.org", sent.To)
	assert.Equal(t, "[WEATHER] Storm warning", sent.Subject)
	assert.Equal(t, "Campus closes at noon.", sent.TextBody)
	assert.Empty(t, sent.HTMLBody)
}

func TestEmailTransport_SendHTMLBody(t *testing.T) {
	t.Parallel()

	fake := &fakePostmark{}
	tr := &EmailTransport{client: fake, from: "alerts@example.org"}

	body := "<p>Campus <b>closed</b> until further notice.</p>"
	err := tr.Send(t.Context(), testRecipient(), "[SECURITY] Lockdown", body)
	require.NoError(t, err)

	sent := fake.lastSent(t)
	assert.Equal(t, body, sent.HTMLBody)
	assert.Equal(t, html2text.HTML2Text(body), sent.TextBody)
	assert.NotContains(t, sent.TextBody, "<b>")
	assert.Contains(t, sent.TextBody, "closed")
}

func TestEmailTransport_RequestFailureIsRetryable(t *testing.T) {
	t.Parallel()

	fake := &fakePostmark{err: assert.AnError}
	tr := &EmailTransport{client: fake, from: "alerts@example.org"}

	err := tr.Send(t.Context(), testRecipient(), "title", "body")
	require.Error(t, err)
	assert.True(t, notification.IsRetryable(err))
	assert.Contains(t, err.Error(), "postmark request failed")
}

func TestEmailTransport_APIRejectionIsPermanent(t *testing.T) {
	t.Parallel()

	fake := &fakePostmark{reply: postmark.EmailResponse{ErrorCode: 406, Message: "Inactive recipient"}}
	tr := &EmailTransport{client: fake, from: "alerts@example.org"}

	err := tr.Send(t.Context(), testRecipient(), "title", "body")
	require.Error(t, err)
	assert.False(t, notification.IsRetryable(err))
	assert.Contains(t, err.Error(), "406")
	assert.Contains(t, err.Error(), "Inactive recipient")
}

func TestEmailTransport_CancelledContext(t *testing.T) {
	t.Parallel()

	fake := &fakePostmark{}
	tr := &EmailTransport{client: fake, from: "alerts@example.org"}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := tr.Send(ctx, testRecipient(), "title", "body")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, notification.IsRetryable(err))
}

func TestLooksLikeHTML(t *testing.T) {
	t.Parallel()

	assert.True(t, looksLikeHTML("<p>hello</p>"))
	assert.True(t, looksLikeHTML("line<br>break"))
	assert.True(t, looksLikeHTML(`<a href="https://example.org">link</a>`))
	assert.True(t, looksLikeHTML("<DIV>upper</DIV>"))

	assert.False(t, looksLikeHTML("plain text"))
	assert.False(t, looksLikeHTML("a < b and b > c"))
	assert.False(t, looksLikeHTML("5<6"))
	assert.False(t, looksLikeHTML(""))
}
