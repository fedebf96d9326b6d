// Package mqtt provides a thin publish-only client for pushing notification
// payloads to an MQTT broker.
package mqtt

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tresorkaseka/Flashnotify/internal/logging"
)

// Client defines the broker operations the MQTT delivery channel needs.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	// It returns an error if the connection fails.
	Connect(ctx context.Context) error

	// Publish sends a message to the specified topic on the MQTT broker.
	// It returns an error if the publish operation fails.
	Publish(ctx context.Context, topic, payload string) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string
	QoS      byte
	Retain   bool // true to retain messages at the broker

	// Connection timeouts
	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values.
func DefaultConfig() Config {
	return Config{
		ClientID:          "flashnotify",
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

var (
	loggerOnce sync.Once
	logger     *slog.Logger
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		if l := logging.ForService("mqtt"); l != nil {
			logger = l
			return
		}
		logger = slog.Default().With("service", "mqtt")
	})
	return logger
}
