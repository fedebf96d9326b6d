package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

// genericURL rewrites an httptest server URL into a shoutrrr generic
// service URL pointing at the same endpoint.
func genericURL(serverURL string) string {
	return "generic://" + strings.TrimPrefix(serverURL, "http://") + "/hook?disabletls=yes"
}

func TestNewPushTransport_ClonesConfig(t *testing.T) {
	t.Parallel()

	cfg := conf.PushChannelSettings{
		URLs:    []string{"generic://push.example.org/hook"},
		Timeout: 3 * time.Second,
	}
	tr := NewPushTransport(&cfg)

	cfg.URLs[0] = "mutated"
	assert.Equal(t, "generic://push.example.org/hook", tr.urls[0])
	assert.Equal(t, 3*time.Second, tr.timeout)
	assert.Equal(t, ChannelPush, tr.Name())
}

func TestPushTransport_ValidateConfigRequiresURLs(t *testing.T) {
	t.Parallel()

	tr := NewPushTransport(&conf.PushChannelSettings{})
	err := tr.ValidateConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one service URL is required")
}

func TestPushTransport_ValidateConfigRejectsUnknownService(t *testing.T) {
	t.Parallel()

	tr := NewPushTransport(&conf.PushChannelSettings{
		URLs: []string{"bogus-service://nowhere"},
	})
	require.Error(t, tr.ValidateConfig())
}

func TestPushTransport_ValidateConfigBuildsSender(t *testing.T) {
	t.Parallel()

	tr := NewPushTransport(&conf.PushChannelSettings{
		URLs:    []string{"generic://127.0.0.1:9/hook?disabletls=yes"},
		Timeout: 2 * time.Second,
	})
	require.NoError(t, tr.ValidateConfig())
	require.NotNil(t, tr.sender)
	assert.Equal(t, 2*time.Second, tr.sender.Timeout)
}

func TestPushTransport_SendWithoutValidateFails(t *testing.T) {
	t.Parallel()

	tr := NewPushTransport(&conf.PushChannelSettings{
		URLs: []string{"generic://127.0.0.1:9/hook?disabletls=yes"},
	})

	err := tr.Send(t.Context(), testRecipient(), "title", "body")
	require.Error(t, err)
	assert.False(t, notification.IsRetryable(err))
	assert.Contains(t, err.Error(), "push sender not initialized")
}

func TestPushTransport_SendDeliversMessage(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewPushTransport(&conf.PushChannelSettings{
		URLs:    []string{genericURL(server.URL)},
		Timeout: 5 * time.Second,
	})
	require.NoError(t, tr.ValidateConfig())

	err := tr.Send(t.Context(), testRecipient(), "[WEATHER] Storm warning", "Stadium closed until 18:00")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "Stadium closed until 18:00")
}

func TestPushTransport_ServerErrorIsRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "push backend down", http.StatusInternalServerError)
	}))
	defer server.Close()

	tr := NewPushTransport(&conf.PushChannelSettings{
		URLs:    []string{genericURL(server.URL)},
		Timeout: 5 * time.Second,
	})
	require.NoError(t, tr.ValidateConfig())

	err := tr.Send(t.Context(), testRecipient(), "title", "body")
	require.Error(t, err)
	assert.True(t, notification.IsRetryable(err))
}
