// Package daemon wires the full delivery pipeline together for the serve
// command: archive, delivery channels, dispatcher, observability endpoint
// and host resource monitor. Run blocks until the process is interrupted,
// then shuts the components down in dependency order.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tresorkaseka/Flashnotify/internal/archive"
	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/dispatch"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/logging"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/observability"
	"github.com/Tresorkaseka/Flashnotify/internal/sysmon"
	"github.com/Tresorkaseka/Flashnotify/internal/telemetry"
	"github.com/Tresorkaseka/Flashnotify/internal/transport"
)

// shutdownTimeout bounds how long the dispatcher may drain queued and
// retrying tasks after an interrupt.
const shutdownTimeout = 30 * time.Second

var (
	serviceLogger     *slog.Logger
	serviceLoggerOnce sync.Once
)

func getLogger() *slog.Logger {
	serviceLoggerOnce.Do(func() {
		if l := logging.ForService("daemon"); l != nil {
			serviceLogger = l
			return
		}
		serviceLogger = slog.Default().With("service", "daemon")
	})
	return serviceLogger
}

// Run starts the notification engine and waits for a termination signal.
// The parent context canceling has the same effect as SIGINT or SIGTERM.
func Run(ctx context.Context, settings *conf.Settings) error {
	log := getLogger()

	if err := telemetry.Init(settings); err != nil {
		log.Warn("error reporting disabled", "error", err)
	}

	// The delivery log is the rotating audit trail of every dispatch result,
	// separate from the console loggers.
	var deliveryLog *slog.Logger
	if settings.Log.Enabled {
		fileLog, closeFunc, err := logging.NewFileLogger(settings.Log.Path, "dispatch", logging.ParseLevel(settings.Log.Level))
		if err != nil {
			log.Warn("delivery log disabled", "path", settings.Log.Path, "error", err)
		} else {
			deliveryLog = fileLog
			defer func() { _ = closeFunc() }()
		}
	}

	store := archive.New(settings)
	if store != nil {
		if err := store.Open(); err != nil {
			return fmt.Errorf("failed to open result archive: %w", err)
		}
		defer closeStore(store)
	} else {
		log.Warn("no archive output enabled, dispatch results will not be persisted")
	}

	transports, err := transport.Setup(settings)
	if err != nil {
		return fmt.Errorf("failed to set up delivery channels: %w", err)
	}
	if len(transports) == 0 {
		return errors.Newf("no delivery channels enabled").
			Component("daemon").
			Category(errors.CategoryConfiguration).
			Context("hint", "enable at least one channel under 'channels:' in the configuration").
			Build()
	}
	defer transport.CloseAll(transports)

	obs, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("error initializing metrics: %w", err)
	}

	var repo notification.Repository
	if store != nil {
		repo = store
	}

	dispatcher := dispatch.New(dispatch.ConfigFromSettings(settings), repo, obs.Dispatch)
	for _, t := range transports {
		if err := dispatcher.Register(t.Name(), t); err != nil {
			return fmt.Errorf("failed to register channel %s: %w", t.Name(), err)
		}
	}
	if err := dispatcher.Start(); err != nil {
		return err
	}
	dispatch.SetDispatcher(dispatcher)

	// quitChan is used to signal the endpoint goroutines to stop.
	quitChan := make(chan struct{})
	var wg sync.WaitGroup
	startObservabilityEndpoint(&wg, settings, obs, dispatcher, store, quitChan)

	monitor := sysmon.New(settings.Monitor, dispatcher)
	monitor.Start()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(sigCtx)
	g.Go(resultLogger(gCtx, dispatcher, deliveryLog))
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")

		// Dependency order: the monitor submits to the dispatcher, the
		// endpoint reads dispatcher health. Dispatcher drain comes in
		// between so late results still reach the archive.
		monitor.Stop()

		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := dispatcher.Stop(drainCtx); err != nil {
			log.Warn("dispatcher did not drain cleanly", "error", err)
		}

		close(quitChan)
		wg.Wait()
		return nil
	})

	log.Info("notification engine started",
		"channels", dispatcher.ListChannels(),
		"workers", settings.Dispatch.Workers,
		"archive", store != nil,
		"observability", settings.Observability.Enabled,
		"monitor", settings.Monitor.Enabled)

	err = g.Wait()
	telemetry.Flush(3 * time.Second)
	log.Info("notification engine stopped")
	return err
}

// startObservabilityEndpoint starts the metrics and health HTTP server when
// the observability section enables it. Endpoint failures are logged, not
// fatal; the engine delivers notifications without it.
func startObservabilityEndpoint(wg *sync.WaitGroup, settings *conf.Settings, obs *observability.Metrics, dispatcher *dispatch.Dispatcher, store archive.Interface, quitChan chan struct{}) {
	if !settings.Observability.Enabled {
		return
	}

	var reader observability.ArchiveReader
	if store != nil {
		reader = store
	}

	endpoint, err := observability.NewEndpoint(settings, obs, dispatcher, reader)
	if err != nil {
		getLogger().Error("error initializing observability endpoint", "error", err)
		return
	}
	endpoint.Start(wg, quitChan)
}

// resultLogger returns an errgroup task that logs every dispatch result
// until the dispatcher stops. Results also land in the delivery log when
// file logging is enabled.
func resultLogger(ctx context.Context, dispatcher *dispatch.Dispatcher, deliveryLog *slog.Logger) func() error {
	results := dispatcher.Subscribe(ctx)
	return func() error {
		for result := range results {
			logResult(getLogger(), result)
			if deliveryLog != nil {
				logResult(deliveryLog, result)
			}
		}
		return nil
	}
}

func logResult(log *slog.Logger, result *notification.DispatchResult) {
	attrs := []any{
		"notification_id", result.NotificationID,
		"recipient", result.Recipient.ID,
		"category", result.Category,
		"priority", result.Priority,
		"rounds", result.Rounds,
		"duration_ms", result.Duration().Milliseconds(),
	}
	switch result.Status {
	case notification.StatusSent:
		log.Info("notification delivered", append(attrs, "channels", result.SuccessfulChannels())...)
	default:
		log.Warn("notification not delivered", append(attrs,
			"status", result.Status,
			"failed_channels", result.FailedChannels(),
			"error", result.Error)...)
	}
}

func closeStore(store archive.Interface) {
	if err := store.Close(); err != nil {
		getLogger().Error("failed to close result archive", "error", err)
	}
}
