package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/mqtt"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/secrets"
)

// defaultMQTTTopic is used when no base topic is configured.
const defaultMQTTTopic = "flashnotify/notifications"

// MQTTTransport publishes notifications to an MQTT broker, one topic per
// recipient under the configured base topic. The broker connection is
// established lazily on first send and kept for subsequent deliveries.
type MQTTTransport struct {
	client mqtt.Client
	topic  string
}

// mqttPayload is the JSON document published to the broker.
type mqttPayload struct {
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	SentAt    string `json:"sent_at"`
}

// NewMQTTTransport creates the MQTT channel from configuration, resolving
// the broker password from its file or environment reference.
func NewMQTTTransport(cfg *conf.MQTTChannelSettings) (*MQTTTransport, error) {
	password, err := secrets.Resolve(cfg.PasswordFile, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve broker password: %w", err)
	}

	clientCfg := mqtt.DefaultConfig()
	clientCfg.Broker = cfg.Broker
	clientCfg.Username = cfg.Username
	clientCfg.Password = password
	clientCfg.QoS = cfg.QoS
	clientCfg.Retain = cfg.Retain
	if cfg.ClientID != "" {
		clientCfg.ClientID = cfg.ClientID
	}
	if cfg.ConnectTimeout > 0 {
		clientCfg.ConnectTimeout = cfg.ConnectTimeout
	}

	client, err := mqtt.NewClient(clientCfg)
	if err != nil {
		return nil, err
	}

	topic := strings.TrimSuffix(strings.TrimSpace(cfg.Topic), "/")
	if topic == "" {
		topic = defaultMQTTTopic
	}

	return &MQTTTransport{client: client, topic: topic}, nil
}

// Name returns the channel identifier the transport serves.
func (t *MQTTTransport) Name() string { return ChannelMQTT }

// Send publishes the notification to <topic>/<recipient id>. Broker
// unavailability is transient: the dispatcher retries while the client
// reconnects in the background.
func (t *MQTTTransport) Send(ctx context.Context, recipient *notification.Recipient, title, body string) error {
	if !t.client.IsConnected() {
		if err := t.client.Connect(ctx); err != nil {
			return notification.RetryableError(fmt.Errorf("broker connect failed: %w", err))
		}
	}

	payload, err := json.Marshal(mqttPayload{
		Recipient: recipient.ID,
		Name:      recipient.Name,
		Title:     title,
		Body:      body,
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return notification.PermanentError(fmt.Errorf("failed to marshal MQTT payload: %w", err))
	}

	if err := t.client.Publish(ctx, t.topic+"/"+recipient.ID, string(payload)); err != nil {
		return notification.RetryableError(fmt.Errorf("publish failed: %w", err))
	}
	return nil
}

// Close disconnects from the broker.
func (t *MQTTTransport) Close() {
	t.client.Disconnect()
}
