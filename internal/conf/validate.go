package conf

import (
	"net/url"
	"strings"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

// ValidateSettings rejects configurations the engine cannot run with.
// Channel credentials are checked by the transports themselves at startup;
// this pass covers the structural invariants.
func ValidateSettings(settings *Settings) error {
	var validationErrors []string

	if settings.Dispatch.Workers <= 0 {
		validationErrors = append(validationErrors, "dispatch.workers must be positive")
	}
	if settings.Dispatch.QueueSize <= 0 {
		validationErrors = append(validationErrors, "dispatch.queuesize must be positive")
	}
	if settings.Dispatch.MaxRetries < 0 {
		validationErrors = append(validationErrors, "dispatch.maxretries must not be negative")
	}
	if settings.Dispatch.RetryBaseDelay <= 0 {
		validationErrors = append(validationErrors, "dispatch.retrybasedelay must be positive")
	}
	if settings.Dispatch.RetryMaxDelay < settings.Dispatch.RetryBaseDelay {
		validationErrors = append(validationErrors, "dispatch.retrymaxdelay must be >= dispatch.retrybasedelay")
	}
	if settings.Dispatch.SendTimeout <= 0 {
		validationErrors = append(validationErrors, "dispatch.sendtimeout must be positive")
	}
	if settings.Dispatch.PerfWindow <= 0 {
		validationErrors = append(validationErrors, "dispatch.perfwindow must be positive")
	}
	switch settings.Dispatch.SuccessPolicy {
	case "", "any", "all":
	default:
		validationErrors = append(validationErrors, "dispatch.successpolicy must be \"any\" or \"all\"")
	}
	if settings.Dispatch.Suppress.Enabled && settings.Dispatch.Suppress.Window <= 0 {
		validationErrors = append(validationErrors, "dispatch.suppress.window must be positive when suppression is enabled")
	}

	if settings.Circuit.MaxFailures <= 0 {
		validationErrors = append(validationErrors, "circuit.maxfailures must be positive")
	}
	if settings.Circuit.Cooldown <= 0 {
		validationErrors = append(validationErrors, "circuit.cooldown must be positive")
	}

	if settings.Channels.Webhook.Enabled {
		if err := validateHTTPURL(settings.Channels.Webhook.URL); err != nil {
			validationErrors = append(validationErrors, "channels.webhook.url: "+err.Error())
		}
		switch strings.ToUpper(settings.Channels.Webhook.Method) {
		case "", "POST", "PUT", "PATCH":
		default:
			validationErrors = append(validationErrors, "channels.webhook.method must be POST, PUT or PATCH")
		}
	}
	if settings.Channels.SMS.Enabled {
		if err := validateHTTPURL(settings.Channels.SMS.GatewayURL); err != nil {
			validationErrors = append(validationErrors, "channels.sms.gatewayurl: "+err.Error())
		}
	}
	if settings.Channels.MQTT.Enabled && settings.Channels.MQTT.Broker == "" {
		validationErrors = append(validationErrors, "channels.mqtt.broker is required")
	}
	if settings.Channels.Script.Enabled && strings.TrimSpace(settings.Channels.Script.Command) == "" {
		validationErrors = append(validationErrors, "channels.script.command is required")
	}

	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		validationErrors = append(validationErrors, "output.sqlite and output.mysql are mutually exclusive")
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		validationErrors = append(validationErrors, "output.sqlite.path is required")
	}

	if settings.Observability.Enabled && settings.Observability.Listen == "" {
		validationErrors = append(validationErrors, "observability.listen is required")
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		validationErrors = append(validationErrors, "sentry.dsn is required when sentry is enabled")
	}

	if settings.Monitor.Enabled {
		if settings.Monitor.Interval <= 0 {
			validationErrors = append(validationErrors, "monitor.interval must be positive")
		}
		if settings.Monitor.RecipientEmail == "" && settings.Monitor.RecipientPhone == "" {
			validationErrors = append(validationErrors, "monitor requires recipientemail or recipientphone")
		}
		for _, threshold := range []float64{settings.Monitor.CPUThreshold, settings.Monitor.MemoryThreshold, settings.Monitor.DiskThreshold} {
			if threshold <= 0 || threshold > 100 {
				validationErrors = append(validationErrors, "monitor thresholds must be within (0, 100]")
				break
			}
		}
	}

	if len(validationErrors) > 0 {
		return errors.Newf("invalid configuration: %s", strings.Join(validationErrors, "; ")).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("error_count", len(validationErrors)).
			Build()
	}

	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.NewStd("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.NewStd("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewStd("url scheme must be http or https")
	}
	if u.Host == "" {
		return errors.NewStd("url host is required")
	}
	return nil
}
