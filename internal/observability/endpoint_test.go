package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tresorkaseka/Flashnotify/internal/archive"
	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/dispatch"
)

type fakeHealthSource struct {
	channels []dispatch.ChannelHealth
	healthy  bool
}

func (f *fakeHealthSource) Health() []dispatch.ChannelHealth { return f.channels }
func (f *fakeHealthSource) Healthy() bool                    { return f.healthy }

type fakeArchiveReader struct {
	totals   map[string]int64
	averages []archive.ChannelAverage
	err      error
}

func (f *fakeArchiveReader) CountByStatus(_ context.Context) (map[string]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.totals, nil
}

func (f *fakeArchiveReader) ChannelAverages(_ context.Context) ([]archive.ChannelAverage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.averages, nil
}

func observabilitySettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Observability.Enabled = true
	settings.Observability.Listen = "127.0.0.1:0"
	return settings
}

func TestNewEndpointRequiresEnabledSetting(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	_, err = NewEndpoint(&conf.Settings{}, m, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enabled")
}

func TestHealthzReportsHealthyEngine(t *testing.T) {
	t.Parallel()

	endpoint := &Endpoint{
		health: &fakeHealthSource{
			healthy: true,
			channels: []dispatch.ChannelHealth{
				{Name: "email", Healthy: true, CircuitState: "closed"},
			},
		},
		store: &fakeArchiveReader{
			totals: map[string]int64{"sent": 12, "failed": 3},
			averages: []archive.ChannelAverage{
				{Channel: "email", Attempts: 15, SuccessRate: 0.8, AvgDurationMs: 120},
			},
		},
	}

	rec := httptest.NewRecorder()
	endpoint.healthzHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Channels, 1)
	assert.Equal(t, "email", resp.Channels[0].Name)
	assert.Equal(t, int64(12), resp.Totals["sent"])
	require.Len(t, resp.Averages, 1)
	assert.InDelta(t, 0.8, resp.Averages[0].SuccessRate, 0.001)
}

func TestHealthzReportsDegradedEngine(t *testing.T) {
	t.Parallel()

	endpoint := &Endpoint{
		health: &fakeHealthSource{
			healthy: false,
			channels: []dispatch.ChannelHealth{
				{Name: "email", Healthy: false, CircuitState: "open"},
			},
		},
	}

	rec := httptest.NewRecorder()
	endpoint.healthzHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestHealthzOmitsArchiveAggregatesOnError(t *testing.T) {
	t.Parallel()

	endpoint := &Endpoint{
		health: &fakeHealthSource{healthy: true},
		store:  &fakeArchiveReader{err: assert.AnError},
	}

	rec := httptest.NewRecorder()
	endpoint.healthzHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Totals)
	assert.Nil(t, resp.Averages)
}

func TestHealthzWithoutSources(t *testing.T) {
	t.Parallel()

	endpoint := &Endpoint{}

	rec := httptest.NewRecorder()
	endpoint.healthzHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Channels)
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Dispatch.RecordSubmission("weather", "accepted")

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dispatch_submissions_total")
}

func TestEndpointStartAndShutdown(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	endpoint, err := NewEndpoint(observabilitySettings(), m, &fakeHealthSource{healthy: true}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	quit := make(chan struct{})
	endpoint.Start(&wg, quit)

	time.Sleep(50 * time.Millisecond)
	close(quit)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("endpoint did not shut down")
	}
}
