package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// client implements the Client interface on top of the paho MQTT library.
// Reconnection after a dropped session is delegated to paho's auto-reconnect;
// publish failures during an outage surface as errors so the dispatcher can
// retry the delivery.
type client struct {
	config          Config
	internalClient  pahomqtt.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
}

// NewClient creates a new MQTT client with the provided configuration.
// Zero-valued timeouts fall back to the defaults from DefaultConfig.
func NewClient(config Config) (Client, error) {
	if config.Broker == "" {
		return nil, fmt.Errorf("broker address is required")
	}

	defaults := DefaultConfig()
	if config.ClientID == "" {
		config.ClientID = defaults.ClientID
	}
	if config.ReconnectCooldown <= 0 {
		config.ReconnectCooldown = defaults.ReconnectCooldown
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = defaults.PublishTimeout
	}
	if config.DisconnectTimeout <= 0 {
		config.DisconnectTimeout = defaults.DisconnectTimeout
	}

	return &client{config: config}, nil
}

// Connect attempts to establish a connection to the MQTT broker.
// It first resolves the broker's hostname and then attempts to connect.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastConnAttempt) < c.config.ReconnectCooldown {
		return fmt.Errorf("connection attempt too recent, last attempt was %v ago", time.Since(c.lastConnAttempt))
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}

	// Resolve the hostname up front so DNS problems surface as DNS errors
	// instead of an opaque connect timeout.
	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) {
				return dnsErr
			}
			return fmt.Errorf("failed to resolve hostname %s: %w", host, err)
		}
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = pahomqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return fmt.Errorf("connection timeout after %v", c.config.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}

	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}

	token := c.internalClient.Publish(topic, c.config.QoS, c.config.Retain, payload)
	if !token.WaitTimeout(c.config.PublishTimeout) {
		return fmt.Errorf("publish timeout after %v", c.config.PublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish error: %w", err)
	}

	getLogger().Debug("message published",
		"topic", topic,
		"bytes", len(payload))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	}
}

func (c *client) onConnect(_ pahomqtt.Client) {
	getLogger().Info("connected to MQTT broker", "broker", c.config.Broker)
}

func (c *client) onConnectionLost(_ pahomqtt.Client, err error) {
	getLogger().Warn("connection to MQTT broker lost",
		"broker", c.config.Broker,
		"error", err)
}
