package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresBroker(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker address is required")
}

func TestNewClient_AppliesDefaults(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	impl, ok := c.(*client)
	require.True(t, ok)
	assert.Equal(t, "flashnotify", impl.config.ClientID)
	assert.Equal(t, 5*time.Second, impl.config.ReconnectCooldown)
	assert.Equal(t, 30*time.Second, impl.config.ConnectTimeout)
	assert.Equal(t, 10*time.Second, impl.config.PublishTimeout)
}

func TestNewClient_KeepsExplicitConfig(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{
		Broker:            "tcp://localhost:1883",
		ClientID:          "campus-alerts",
		QoS:               1,
		Retain:            true,
		ReconnectCooldown: time.Minute,
	})
	require.NoError(t, err)

	impl, ok := c.(*client)
	require.True(t, ok)
	assert.Equal(t, "campus-alerts", impl.config.ClientID)
	assert.Equal(t, byte(1), impl.config.QoS)
	assert.True(t, impl.config.Retain)
	assert.Equal(t, time.Minute, impl.config.ReconnectCooldown)
}

func TestConnect_InvalidBrokerURL(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Broker: "://missing-scheme"})
	require.NoError(t, err)

	err = c.Connect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid broker URL")
	assert.False(t, c.IsConnected())
}

func TestConnect_UnresolvableHost(t *testing.T) {
	t.Parallel()

	// RFC 6761 reserves .invalid, the lookup can never succeed.
	c, err := NewClient(Config{Broker: "tcp://unresolvable.invalid:1883"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	require.Error(t, c.Connect(ctx))
	assert.False(t, c.IsConnected())
}

func TestConnect_CooldownRejectsRapidRetry(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{
		Broker:            "tcp://unresolvable.invalid:1883",
		ReconnectCooldown: time.Minute,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	require.Error(t, c.Connect(ctx))

	err = c.Connect(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection attempt too recent")
}

func TestPublish_WhileDisconnected(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	err = c.Publish(t.Context(), "alerts/test", "payload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestPublish_HonorsCancelledContext(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err = c.Publish(ctx, "alerts/test", "payload")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDisconnect_WithoutConnect(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	// Must not panic when no connection was ever made.
	c.Disconnect()
	assert.False(t, c.IsConnected())
}
