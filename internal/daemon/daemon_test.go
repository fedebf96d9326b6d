package daemon

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("runtime.gopark"),
		// The runtime signal watcher registered by signal.NotifyContext
		// persists for the life of the process.
		goleak.IgnoreTopFunction("os/signal.signal_recv"),
		goleak.IgnoreTopFunction("os/signal.loop"),
	)
	os.Exit(m.Run())
}

// testSettings enables only the script channel so the engine starts without
// touching the network or the filesystem.
func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Main.Name = "test"
	settings.Dispatch.Workers = 2
	settings.Dispatch.QueueSize = 16
	settings.Dispatch.SendTimeout = time.Second
	settings.Dispatch.DefaultChannel = "script"
	settings.Channels.Script.Enabled = true
	settings.Channels.Script.Command = "/bin/true"
	return settings
}

func TestRunFailsWithoutChannels(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &conf.Settings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no delivery channels enabled")
}

func TestRunStartsAndStops(t *testing.T) {
	settings := testSettings()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, settings) }()

	// Let the engine reach steady state before interrupting it.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("engine did not shut down after cancel")
	}
}

func TestLogResultLevels(t *testing.T) {
	t.Parallel()

	recipient := &notification.Recipient{ID: "alice", Name: "Alice", Email: "alice@example.org"}
	result := func(status notification.ResultStatus) *notification.DispatchResult {
		return &notification.DispatchResult{
			ID:             "r1",
			NotificationID: "n1",
			Recipient:      recipient,
			Category:       notification.CategoryWeather,
			Priority:       notification.PriorityHigh,
			Status:         status,
			EnqueuedAt:     time.Now().Add(-time.Second),
			CompletedAt:    time.Now(),
		}
	}

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logResult(log, result(notification.StatusSent))
	assert.Contains(t, buf.String(), "notification delivered")
	assert.Contains(t, buf.String(), `"level":"INFO"`)

	buf.Reset()
	logResult(log, result(notification.StatusFailed))
	assert.Contains(t, buf.String(), "notification not delivered")
	assert.Contains(t, buf.String(), `"level":"WARN"`)

	buf.Reset()
	logResult(log, result(notification.StatusExpired))
	assert.Contains(t, buf.String(), "notification not delivered")
	assert.Contains(t, buf.String(), `"expired"`)
}
