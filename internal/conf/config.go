// Package conf loads and validates the application configuration from
// flashnotify.yaml, environment variables, and built-in defaults.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

// Log rotation types
const (
	RotationDaily  = "daily"
	RotationWeekly = "weekly"
	RotationSize   = "size"
)

// Settings is the root configuration structure.
type Settings struct {
	Debug bool `yaml:"debug"` // true to enable debug logging

	Version string `yaml:"-"` // build version, stamped by main at startup

	Main struct {
		Name string `yaml:"name"` // instance name, used in logs and telemetry
	} `yaml:"main"`

	Log           LogSettings           `yaml:"log"`
	Dispatch      DispatchSettings      `yaml:"dispatch"`
	Circuit       CircuitSettings       `yaml:"circuit"`
	Channels      ChannelsSettings      `yaml:"channels"`
	Output        OutputSettings        `yaml:"output"`
	Observability ObservabilitySettings `yaml:"observability"`
	Sentry        SentrySettings        `yaml:"sentry"`
	Monitor       MonitorSettings       `yaml:"monitor"`
}

// LogSettings configures application file logging.
type LogSettings struct {
	Enabled   bool   `yaml:"enabled"`   // true to enable file logging
	Path      string `yaml:"path"`      // log file path
	Level     string `yaml:"level"`     // trace|debug|info|warn|error
	Rotation  string `yaml:"rotation"`  // daily|weekly|size
	MaxSizeMB int    `yaml:"maxsizemb"` // max size in MB for size rotation
	Compress  bool   `yaml:"compress"`  // compress rotated logs
}

// DispatchSettings configures the dispatch engine.
type DispatchSettings struct {
	Workers        int              `yaml:"workers"`        // queue worker count
	QueueSize      int              `yaml:"queuesize"`      // bounded queue capacity across all tiers
	MaxRetries     int              `yaml:"maxretries"`     // max retries per task for transient failures
	RetryBaseDelay time.Duration    `yaml:"retrybasedelay"` // first retry backoff
	RetryMaxDelay  time.Duration    `yaml:"retrymaxdelay"`  // backoff cap
	SendTimeout    time.Duration    `yaml:"sendtimeout"`    // per transport call timeout
	DefaultChannel string           `yaml:"defaultchannel"` // fallback channel for non-critical priorities
	PerfWindow     int              `yaml:"perfwindow"`     // per-channel performance samples retained
	SuccessPolicy  string           `yaml:"successpolicy"`  // "any" or "all" selected channels must succeed
	Suppress       SuppressSettings `yaml:"suppress"`
}

// SuppressSettings configures duplicate-submission suppression.
type SuppressSettings struct {
	Enabled bool          `yaml:"enabled"` // true to reject duplicate submissions inside the window
	Window  time.Duration `yaml:"window"`  // suppression window
}

// CircuitSettings configures the per-channel circuit breakers.
type CircuitSettings struct {
	MaxFailures int           `yaml:"maxfailures"` // consecutive failures before opening
	Cooldown    time.Duration `yaml:"cooldown"`    // open state duration before the half-open trial
}

// ChannelsSettings configures the delivery channel transports.
type ChannelsSettings struct {
	Email   EmailChannelSettings   `yaml:"email"`
	SMS     SMSChannelSettings     `yaml:"sms"`
	Push    PushChannelSettings    `yaml:"push"`
	MQTT    MQTTChannelSettings    `yaml:"mqtt"`
	Webhook WebhookChannelSettings `yaml:"webhook"`
	Script  ScriptChannelSettings  `yaml:"script"`
}

// EmailChannelSettings configures the Postmark-backed email channel.
type EmailChannelSettings struct {
	Enabled         bool   `yaml:"enabled"`
	ServerToken     string `yaml:"servertoken"`     // Postmark server token, supports ${ENV} expansion
	ServerTokenFile string `yaml:"servertokenfile"` // file-based secret, preferred over servertoken
	AccountToken    string `yaml:"accounttoken"`
	From            string `yaml:"from"`    // sender address
	ReplyTo         string `yaml:"replyto"` // optional reply-to address
}

// SMSChannelSettings configures the HTTP SMS gateway channel.
type SMSChannelSettings struct {
	Enabled    bool          `yaml:"enabled"`
	GatewayURL string        `yaml:"gatewayurl"` // JSON POST endpoint of the SMS gateway
	APIKey     string        `yaml:"apikey"`     // bearer token, supports ${ENV} expansion
	APIKeyFile string        `yaml:"apikeyfile"` // file-based secret
	From       string        `yaml:"from"`       // sender id passed to the gateway
	Timeout    time.Duration `yaml:"timeout"`    // per request timeout, 0 uses the dispatch default
}

// PushChannelSettings configures the shoutrrr push channel.
type PushChannelSettings struct {
	Enabled bool          `yaml:"enabled"`
	URLs    []string      `yaml:"urls"`    // shoutrrr service URLs
	Timeout time.Duration `yaml:"timeout"` // send timeout for the shoutrrr router
}

// MQTTChannelSettings configures the MQTT publish channel.
type MQTTChannelSettings struct {
	Enabled        bool          `yaml:"enabled"`
	Broker         string        `yaml:"broker"` // tcp://host:port
	Topic          string        `yaml:"topic"`  // base topic, recipient id is appended
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	PasswordFile   string        `yaml:"passwordfile"`
	ClientID       string        `yaml:"clientid"`
	QoS            byte          `yaml:"qos"`
	Retain         bool          `yaml:"retain"`
	ConnectTimeout time.Duration `yaml:"connecttimeout"`
}

// WebhookChannelSettings configures the generic webhook channel.
type WebhookChannelSettings struct {
	Enabled         bool              `yaml:"enabled"`
	URL             string            `yaml:"url"`
	Method          string            `yaml:"method"` // POST, PUT or PATCH
	Headers         map[string]string `yaml:"headers"`
	BearerToken     string            `yaml:"bearertoken"`
	BearerTokenFile string            `yaml:"bearertokenfile"`
	Timeout         time.Duration     `yaml:"timeout"`
}

// ScriptChannelSettings configures the external command channel.
type ScriptChannelSettings struct {
	Enabled bool     `yaml:"enabled"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// OutputSettings configures dispatch result persistence.
type OutputSettings struct {
	SQLite struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"sqlite"`
	MySQL struct {
		Enabled  bool   `yaml:"enabled"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Database string `yaml:"database"`
	} `yaml:"mysql"`
}

// ObservabilitySettings configures the metrics and health endpoint.
type ObservabilitySettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // host:port for /metrics and /healthz
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// MonitorSettings configures the host resource watcher that raises
// infrastructure notifications.
type MonitorSettings struct {
	Enabled          bool          `yaml:"enabled"`
	Interval         time.Duration `yaml:"interval"`         // poll interval
	CPUThreshold     float64       `yaml:"cputhreshold"`     // percent
	MemoryThreshold  float64       `yaml:"memorythreshold"`  // percent
	DiskThreshold    float64       `yaml:"diskthreshold"`    // percent
	DiskPath         string        `yaml:"diskpath"`         // mount point to watch
	BreachCount      int           `yaml:"breachcount"`      // consecutive breaches before alerting
	AlertsPerHour    int           `yaml:"alertsperhour"`    // rate limit on emitted alerts
	RecipientName    string        `yaml:"recipientname"`    // operator contact for alerts
	RecipientEmail   string        `yaml:"recipientemail"`
	RecipientPhone   string        `yaml:"recipientphone"`
	PreferredChannel string        `yaml:"preferredchannel"`
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance and makes it the active one.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("flashnotify")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("flashnotify")
	viper.AutomaticEnv()

	// defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file anywhere in the search path, run on defaults.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig writes the embedded default config to the first config
// path and loads it. Used by the config subcommand.
func CreateDefaultConfig() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "flashnotify.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return configPath, errors.Newf("config file already exists at %s", configPath).
			Category(errors.CategoryConfiguration).
			Context("operation", "create-default-config").
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return "", fmt.Errorf("error writing default config file: %w", err)
	}

	return configPath, nil
}

// getDefaultConfig reads the default configuration from the embedded flashnotify.yaml.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SetSettings replaces the active settings instance. Intended for tests.
func SetSettings(settings *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = settings
}

// SaveYAMLConfig writes settings to the given path as YAML.
// It overwrites the existing file, not preserving comments.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, yamlData, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
