package conf

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defaultSettings unmarshals the viper defaults into a Settings struct.
func defaultSettings(t *testing.T) *Settings {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaultConfig()

	settings := &Settings{}
	require.NoError(t, viper.Unmarshal(settings))
	return settings
}

func TestDefaultSettingsAreValid(t *testing.T) {
	settings := defaultSettings(t)

	require.NoError(t, ValidateSettings(settings))

	assert.Equal(t, 5, settings.Dispatch.Workers)
	assert.Equal(t, 100, settings.Dispatch.QueueSize)
	assert.Equal(t, 3, settings.Dispatch.MaxRetries)
	assert.Equal(t, 10*time.Second, settings.Dispatch.SendTimeout)
	assert.Equal(t, "push", settings.Dispatch.DefaultChannel)
	assert.Equal(t, "any", settings.Dispatch.SuccessPolicy)
	assert.Equal(t, 5, settings.Circuit.MaxFailures)
	assert.Equal(t, 60*time.Second, settings.Circuit.Cooldown)
	assert.True(t, settings.Output.SQLite.Enabled)
	assert.False(t, settings.Dispatch.Suppress.Enabled)
}

func TestValidateSettingsRejectsBrokenConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{
			name:    "zero workers",
			mutate:  func(s *Settings) { s.Dispatch.Workers = 0 },
			wantErr: "dispatch.workers",
		},
		{
			name:    "zero queue size",
			mutate:  func(s *Settings) { s.Dispatch.QueueSize = 0 },
			wantErr: "dispatch.queuesize",
		},
		{
			name:    "max delay below base delay",
			mutate:  func(s *Settings) { s.Dispatch.RetryMaxDelay = s.Dispatch.RetryBaseDelay / 2 },
			wantErr: "retrymaxdelay",
		},
		{
			name:    "unknown success policy",
			mutate:  func(s *Settings) { s.Dispatch.SuccessPolicy = "most" },
			wantErr: "dispatch.successpolicy",
		},
		{
			name:    "zero cooldown",
			mutate:  func(s *Settings) { s.Circuit.Cooldown = 0 },
			wantErr: "circuit.cooldown",
		},
		{
			name: "webhook without url",
			mutate: func(s *Settings) {
				s.Channels.Webhook.Enabled = true
				s.Channels.Webhook.URL = ""
			},
			wantErr: "channels.webhook.url",
		},
		{
			name: "webhook bad method",
			mutate: func(s *Settings) {
				s.Channels.Webhook.Enabled = true
				s.Channels.Webhook.URL = "https://example.org/hook"
				s.Channels.Webhook.Method = "DELETE"
			},
			wantErr: "channels.webhook.method",
		},
		{
			name: "both outputs enabled",
			mutate: func(s *Settings) {
				s.Output.SQLite.Enabled = true
				s.Output.MySQL.Enabled = true
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "sentry without dsn",
			mutate: func(s *Settings) {
				s.Sentry.Enabled = true
				s.Sentry.DSN = ""
			},
			wantErr: "sentry.dsn",
		},
		{
			name: "monitor without recipient",
			mutate: func(s *Settings) {
				s.Monitor.Enabled = true
				s.Monitor.RecipientEmail = ""
				s.Monitor.RecipientPhone = ""
			},
			wantErr: "recipientemail or recipientphone",
		},
		{
			name: "monitor threshold out of range",
			mutate: func(s *Settings) {
				s.Monitor.Enabled = true
				s.Monitor.RecipientEmail = "ops@example.org"
				s.Monitor.CPUThreshold = 150
			},
			wantErr: "thresholds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := defaultSettings(t)
			tt.mutate(settings)

			err := ValidateSettings(settings)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEmbeddedDefaultConfigParses(t *testing.T) {
	raw := getDefaultConfig()
	require.NotEmpty(t, raw)
	assert.Contains(t, raw, "dispatch:")
	assert.Contains(t, raw, "circuit:")
	assert.Contains(t, raw, "channels:")
}
