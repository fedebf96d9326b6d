package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

func testRecipient() *notification.Recipient {
	return &notification.Recipient{
		ID:    "user-1",
		Name:  "Ada Lovelace",
		Email: "ada@example.org",
		Phone: "+15550100200",
	}
}

func transportNames(transports []notification.Transport) []string {
	names := make([]string, 0, len(transports))
	for _, tr := range transports {
		names = append(names, tr.Name())
	}
	return names
}

func TestSetup_NothingEnabled(t *testing.T) {
	t.Parallel()

	transports, err := Setup(&conf.Settings{})
	require.NoError(t, err)
	assert.Empty(t, transports)
}

func TestSetup_BuildsEnabledChannelsInOrder(t *testing.T) {
	settings := &conf.Settings{}
	settings.Channels.Email.Enabled = true
	settings.Channels.Email.ServerToken = "pm-test-token"
	settings.Channels.Email.From = "alerts@example.org"
	settings.Channels.SMS.Enabled = true
	settings.Channels.SMS.GatewayURL = "https://sms.example.org/api/send"
	settings.Channels.Push.Enabled = true
	settings.Channels.Push.URLs = []string{"generic://push.example.org/hook"}
	settings.Channels.Script.Enabled = true
	settings.Channels.Script.Command = "/usr/local/bin/notify-hook"

	transports, err := Setup(settings)
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelEmail, ChannelSMS, ChannelPush, ChannelScript}, transportNames(transports))
}

func TestSetup_FailsOnBrokenChannelConfig(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Channels.SMS.Enabled = true
	settings.Channels.SMS.GatewayURL = "ftp://sms.example.org"

	_, err := Setup(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sms channel")
}

func TestSetup_FailsOnUnresolvableSecret(t *testing.T) {
	settings := &conf.Settings{}
	settings.Channels.Email.Enabled = true
	settings.Channels.Email.ServerToken = "${FLASHNOTIFY_TEST_MISSING_TOKEN}"
	settings.Channels.Email.From = "alerts@example.org"

	_, err := Setup(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email channel")
}

func TestCloseAll_ClosesClosableTransports(t *testing.T) {
	t.Parallel()

	fake := &fakeMQTTClient{}
	transports := []notification.Transport{
		&MQTTTransport{client: fake, topic: "alerts"},
		&ScriptTransport{command: "/bin/true"},
	}

	CloseAll(transports)
	assert.Equal(t, 1, fake.disconnects)
}

func TestValidateHTTPURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{name: "https", url: "https://example.org/hook"},
		{name: "http", url: "http://example.org/hook"},
		{name: "empty", url: "", wantErr: "URL is required"},
		{name: "bad scheme", url: "ftp://example.org", wantErr: "scheme must be http or https"},
		{name: "missing host", url: "https:///hook", wantErr: "host is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateHTTPURL(tt.url)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStatusRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, statusRetryable(http.StatusInternalServerError))
	assert.True(t, statusRetryable(http.StatusBadGateway))
	assert.True(t, statusRetryable(http.StatusServiceUnavailable))
	assert.True(t, statusRetryable(http.StatusTooManyRequests))
	assert.True(t, statusRetryable(http.StatusRequestTimeout))

	assert.False(t, statusRetryable(http.StatusBadRequest))
	assert.False(t, statusRetryable(http.StatusUnauthorized))
	assert.False(t, statusRetryable(http.StatusNotFound))
	assert.False(t, statusRetryable(http.StatusUnprocessableEntity))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "lo...", truncate("longer than five", 5))
}
