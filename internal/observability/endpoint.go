// Package observability provides Prometheus metrics functionality for the dispatch engine.
// Sentry-related monitoring and error telemetry are handled in the telemetry package.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Tresorkaseka/Flashnotify/internal/archive"
	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/dispatch"
)

// shutdownTimeout bounds the graceful shutdown of the endpoint server.
const shutdownTimeout = 5 * time.Second

// healthQueryTimeout bounds the archive reads performed per health request.
const healthQueryTimeout = 2 * time.Second

// HealthSource reports the live state of the delivery channels. The
// dispatcher implements it.
type HealthSource interface {
	Health() []dispatch.ChannelHealth
	Healthy() bool
}

// ArchiveReader exposes the archived aggregates included in health
// responses. The archive store implements it; a nil reader omits them.
type ArchiveReader interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
	ChannelAverages(ctx context.Context) ([]archive.ChannelAverage, error)
}

// Endpoint serves /metrics and /healthz on the configured listen address.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	health        HealthSource
	store         ArchiveReader
}

// healthResponse is the JSON body served by /healthz.
type healthResponse struct {
	Status   string                   `json:"status"`
	Channels []dispatch.ChannelHealth `json:"channels"`
	Totals   map[string]int64         `json:"totals,omitempty"`
	Averages []archive.ChannelAverage `json:"channel_averages,omitempty"`
}

// NewEndpoint creates a new observability Endpoint from the provided
// settings. It returns an error if the endpoint is not enabled in the
// settings. The store may be nil when result persistence is disabled.
func NewEndpoint(settings *conf.Settings, m *Metrics, health HealthSource, store ArchiveReader) (*Endpoint, error) {
	if !settings.Observability.Enabled {
		return nil, fmt.Errorf("observability endpoint not enabled in settings")
	}

	return &Endpoint{
		listenAddress: settings.Observability.Listen,
		metrics:       m,
		health:        health,
		store:         store,
	}, nil
}

// Start initializes and runs the HTTP server for the endpoint.
//
// It sets up the routes, starts the server in a separate goroutine, and
// listens for a quit signal to shut down gracefully.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)
	mux.HandleFunc("/healthz", e.healthzHandler)

	e.server = &http.Server{
		Addr:              e.listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Go(func() {
		getLogger().Info("observability endpoint starting", "address", e.listenAddress)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			getLogger().Error("observability server error", "error", err)
		}
	})

	go e.gracefulShutdown(quitChan)
}

// gracefulShutdown waits for the quit signal and shuts down the server gracefully.
func (e *Endpoint) gracefulShutdown(quitChan <-chan struct{}) {
	<-quitChan
	getLogger().Info("stopping observability server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		getLogger().Error("observability server shutdown error", "error", err)
	}
}

// healthzHandler reports channel health plus archived dispatch aggregates.
// A degraded engine answers 503 so load balancers and probes can react.
func (e *Endpoint) healthzHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}

	if e.health != nil {
		resp.Channels = e.health.Health()
		if !e.health.Healthy() {
			resp.Status = "degraded"
		}
	}

	if e.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthQueryTimeout)
		defer cancel()

		if totals, err := e.store.CountByStatus(ctx); err == nil {
			resp.Totals = totals
		} else {
			getLogger().Debug("health archive totals unavailable", "error", err)
		}
		if averages, err := e.store.ChannelAverages(ctx); err == nil {
			resp.Averages = averages
		} else {
			getLogger().Debug("health archive averages unavailable", "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		getLogger().Error("failed to encode health response", "error", err)
	}
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
