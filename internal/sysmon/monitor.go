// Package sysmon watches host CPU, memory, and disk usage and raises
// infrastructure notifications through the dispatcher when a resource
// stays above its configured threshold for several consecutive checks.
package sysmon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/time/rate"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/dispatch"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/logging"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

var (
	serviceLogger     *slog.Logger
	serviceLoggerOnce sync.Once
)

// getLogger returns the sysmon service logger, falling back to the default
// slog logger when the logging subsystem has not been initialized.
func getLogger() *slog.Logger {
	serviceLoggerOnce.Do(func() {
		if l := logging.ForService("sysmon"); l != nil {
			serviceLogger = l
			return
		}
		serviceLogger = slog.Default().With("service", "sysmon")
	})
	return serviceLogger
}

// Resource identifies one monitored host resource.
type Resource string

const (
	ResourceCPU    Resource = "cpu"
	ResourceMemory Resource = "memory"
	ResourceDisk   Resource = "disk"
)

const (
	// Recovery requires the reading to drop this far below the threshold,
	// so values oscillating around the limit do not flap.
	hysteresisPercent = 5.0
	// A full disk does not recover on its own; remind the operator.
	diskResendInterval = 30 * time.Minute
	// Alerts that cannot be delivered within this window are stale.
	alertTTL = time.Hour

	stateKeySeparator = "|"
	defaultInterval   = 30 * time.Second
)

// Submitter accepts notification requests for delivery.
// *dispatch.Dispatcher satisfies it.
type Submitter interface {
	Submit(n *notification.Notification) (*dispatch.Handle, error)
}

// resourceState tracks one resource's position relative to its threshold.
type resourceState struct {
	Breaches   int       // consecutive readings at or above the threshold
	Alerting   bool      // the breach streak reached the configured count
	AlertSent  bool      // the alert was accepted by the dispatcher
	AlertStart time.Time // when the breach streak completed
	LastAlert  time.Time // when the last alert was submitted
	LastValue  float64
	LastCheck  time.Time
}

// ResourceStatus is a point-in-time view of one tracked resource.
type ResourceStatus struct {
	Value     float64   `json:"value"`
	Alerting  bool      `json:"alerting"`
	Breaches  int       `json:"breaches"`
	LastCheck time.Time `json:"last_check"`
}

// Monitor polls host resource usage and submits infrastructure alerts for
// sustained threshold breaches. A breach must persist for the configured
// number of consecutive checks before an alert is raised, and one recovery
// notification follows when usage returns to normal. Alert volume is
// bounded by the configured hourly rate limit.
type Monitor struct {
	cfg       conf.MonitorSettings
	submitter Submitter
	recipient *notification.Recipient
	limiter   *rate.Limiter
	hostname  string

	states map[string]*resourceState
	mu     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger

	// usage probes, replaced in tests
	cpuUsage  func() (float64, error)
	memUsage  func() (float64, error)
	diskUsage func(path string) (float64, error)
}

// New creates a monitor from the given settings. Alerts are addressed to
// the operator recipient named in the settings and submitted through the
// given submitter, normally the process dispatcher.
func New(cfg conf.MonitorSettings, submitter Submitter) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.BreachCount < 1 {
		cfg.BreachCount = 1
	}
	if cfg.DiskPath == "" {
		cfg.DiskPath = "/"
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	name := cfg.RecipientName
	if name == "" {
		name = "Operator"
	}

	m := &Monitor{
		cfg:       cfg,
		submitter: submitter,
		recipient: &notification.Recipient{
			ID:               "operator",
			Name:             name,
			Email:            cfg.RecipientEmail,
			Phone:            cfg.RecipientPhone,
			PreferredChannel: cfg.PreferredChannel,
		},
		limiter:  newAlertLimiter(cfg.AlertsPerHour),
		hostname: hostname,
		states:   make(map[string]*resourceState),
		ctx:      ctx,
		cancel:   cancel,
		log:      getLogger(),
	}

	m.cpuUsage = func() (float64, error) {
		// Instant reading; a 1-second sample would be more accurate but
		// blocks the check loop.
		percents, err := cpu.Percent(0, false)
		if err != nil {
			return 0, err
		}
		if len(percents) == 0 {
			return 0, errors.NewStd("no cpu samples returned")
		}
		return percents[0], nil
	}
	m.memUsage = func() (float64, error) {
		vm, err := mem.VirtualMemory()
		if err != nil {
			return 0, err
		}
		return vm.UsedPercent, nil
	}
	m.diskUsage = func(path string) (float64, error) {
		usage, err := disk.Usage(path)
		if err != nil {
			return 0, err
		}
		return usage.UsedPercent, nil
	}

	return m
}

// newAlertLimiter converts an alerts-per-hour budget into a token bucket.
// The full budget is available as burst so a host-wide incident can alert
// on every resource at once. A non-positive budget disables limiting.
func newAlertLimiter(perHour int) *rate.Limiter {
	if perHour <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour)
}

// Start begins the polling loop. It is a no-op when monitoring is disabled.
func (m *Monitor) Start() {
	if !m.cfg.Enabled {
		m.log.Debug("resource monitoring disabled")
		return
	}

	m.log.Info("starting resource monitor",
		"interval", m.cfg.Interval,
		"cpu_threshold", m.cfg.CPUThreshold,
		"memory_threshold", m.cfg.MemoryThreshold,
		"disk_threshold", m.cfg.DiskThreshold,
		"disk_path", m.cfg.DiskPath,
		"breach_count", m.cfg.BreachCount,
		"alerts_per_hour", m.cfg.AlertsPerHour)

	m.wg.Add(1)
	go m.loop()
}

// Stop halts polling and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	m.checkAll()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.checkAll()
		case <-m.ctx.Done():
			m.log.Info("resource monitor stopping")
			return
		}
	}
}

// checkAll reads every resource once and evaluates it against its threshold.
// Probe failures are logged and skipped; the next tick retries.
func (m *Monitor) checkAll() {
	if usage, err := m.cpuUsage(); err != nil {
		m.log.Error("failed to read cpu usage", "error", err)
	} else {
		m.evaluate(ResourceCPU, "", usage, m.cfg.CPUThreshold)
	}

	if usage, err := m.memUsage(); err != nil {
		m.log.Error("failed to read memory usage", "error", err)
	} else {
		m.evaluate(ResourceMemory, "", usage, m.cfg.MemoryThreshold)
	}

	if usage, err := m.diskUsage(m.cfg.DiskPath); err != nil {
		m.log.Error("failed to read disk usage", "path", m.cfg.DiskPath, "error", err)
	} else {
		m.evaluate(ResourceDisk, m.cfg.DiskPath, usage, m.cfg.DiskThreshold)
	}
}

// evaluate advances one resource's alert state machine with a new reading.
//
// Entry into an alert requires BreachCount consecutive readings at or above
// the threshold; any reading below it resets the streak. Exit requires the
// reading to fall below threshold-hysteresisPercent, so a value hovering at
// the limit holds the alert instead of flapping.
func (m *Monitor) evaluate(resource Resource, path string, current, threshold float64) {
	key := string(resource)
	if path != "" && resource == ResourceDisk {
		key = string(resource) + stateKeySeparator + path
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[key]
	if !ok {
		state = &resourceState{}
		m.states[key] = state
	}
	state.LastValue = current
	state.LastCheck = time.Now()

	switch {
	case current >= threshold:
		switch {
		case !state.Alerting:
			state.Breaches++
			if state.Breaches < m.cfg.BreachCount {
				m.log.Debug("threshold breached",
					"resource", key,
					"current", fmt.Sprintf("%.1f%%", current),
					"threshold", fmt.Sprintf("%.1f%%", threshold),
					"breaches", state.Breaches,
					"required", m.cfg.BreachCount)
				break
			}
			state.Alerting = true
			state.AlertStart = time.Now()
			m.log.Warn("sustained threshold breach",
				"resource", key,
				"current", fmt.Sprintf("%.1f%%", current),
				"threshold", fmt.Sprintf("%.1f%%", threshold),
				"breaches", state.Breaches)
			m.raiseAlert(resource, path, current, threshold, state)
		case !state.AlertSent:
			// The breach outlived an earlier rate-limit denial or a full
			// queue. Keep trying until the alert goes out.
			m.raiseAlert(resource, path, current, threshold, state)
		case resource == ResourceDisk && time.Since(state.LastAlert) >= diskResendInterval:
			m.log.Info("resending disk alert",
				"path", path,
				"current", fmt.Sprintf("%.1f%%", current),
				"last_alert", state.LastAlert.Format(time.RFC3339))
			m.raiseAlert(resource, path, current, threshold, state)
		default:
			m.log.Debug("still above threshold",
				"resource", key,
				"current", fmt.Sprintf("%.1f%%", current))
		}

	case state.Alerting && current >= threshold-hysteresisPercent:
		// Inside the hysteresis band, hold the alert.
		m.log.Debug("within hysteresis band",
			"resource", key,
			"current", fmt.Sprintf("%.1f%%", current),
			"threshold", fmt.Sprintf("%.1f%%", threshold))

	default:
		if state.Alerting {
			m.log.Info("resource usage recovered",
				"resource", key,
				"current", fmt.Sprintf("%.1f%%", current),
				"alert_duration", time.Since(state.AlertStart).Round(time.Second))
			if state.AlertSent {
				m.sendRecovery(resource, path, current, time.Since(state.AlertStart))
			}
			state.Alerting = false
			state.AlertSent = false
			state.AlertStart = time.Time{}
			state.LastAlert = time.Time{}
		}
		state.Breaches = 0
	}
}

// raiseAlert submits one infrastructure alert, subject to the rate limit.
// The caller holds m.mu; Submit never blocks, it fails fast on a full queue.
func (m *Monitor) raiseAlert(resource Resource, path string, current, threshold float64, state *resourceState) {
	if !m.limiter.Allow() {
		m.log.Warn("infrastructure alert dropped by rate limit",
			"resource", string(resource),
			"current", fmt.Sprintf("%.1f%%", current))
		return
	}

	n := notification.New(m.recipient, notification.CategoryInfrastructure,
		alertTitle(resource, path),
		fmt.Sprintf("%s usage on %s is at %.1f%%, above the configured %.1f%% threshold since %s.",
			displayName(resource), m.hostname, current, threshold,
			state.AlertStart.Format(time.RFC3339))).
		WithTTL(alertTTL).
		WithMetadata("resource", string(resource)).
		WithMetadata("value", current).
		WithMetadata("threshold", threshold).
		WithMetadata("hostname", m.hostname)
	if path != "" {
		n = n.WithMetadata("path", path)
	}

	if _, err := m.submitter.Submit(n); err != nil {
		m.log.Error("failed to submit infrastructure alert",
			"resource", string(resource),
			"error", err)
		return
	}

	state.AlertSent = true
	state.LastAlert = time.Now()
	m.log.Info("infrastructure alert submitted",
		"resource", string(resource),
		"notification_id", n.ID,
		"current", fmt.Sprintf("%.1f%%", current),
		"threshold", fmt.Sprintf("%.1f%%", threshold))
}

// sendRecovery submits the all-clear for a resource whose alert went out.
// Recovery is not rate-limited; it is bounded one-to-one by sent alerts.
func (m *Monitor) sendRecovery(resource Resource, path string, current float64, alertDuration time.Duration) {
	n := notification.New(m.recipient, notification.CategoryInfrastructure,
		recoveryTitle(resource, path),
		fmt.Sprintf("%s usage on %s is back to %.1f%% after %s above threshold.",
			displayName(resource), m.hostname, current,
			alertDuration.Round(time.Second))).
		WithTTL(alertTTL).
		WithMetadata("resource", string(resource)).
		WithMetadata("value", current).
		WithMetadata("alert_duration", alertDuration.String()).
		WithMetadata("hostname", m.hostname)
	if path != "" {
		n = n.WithMetadata("path", path)
	}

	if _, err := m.submitter.Submit(n); err != nil {
		m.log.Error("failed to submit recovery notification",
			"resource", string(resource),
			"error", err)
		return
	}

	m.log.Info("recovery notification submitted",
		"resource", string(resource),
		"notification_id", n.ID,
		"current", fmt.Sprintf("%.1f%%", current))
}

// Status returns a snapshot of every tracked resource, keyed by resource
// name ("cpu", "memory") or resource and path for disks ("disk|/").
func (m *Monitor) Status() map[string]ResourceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]ResourceStatus, len(m.states))
	for key, state := range m.states {
		status[key] = ResourceStatus{
			Value:     state.LastValue,
			Alerting:  state.Alerting,
			Breaches:  state.Breaches,
			LastCheck: state.LastCheck,
		}
	}
	return status
}

func displayName(resource Resource) string {
	switch resource {
	case ResourceCPU:
		return "CPU"
	case ResourceMemory:
		return "Memory"
	case ResourceDisk:
		return "Disk"
	default:
		return string(resource)
	}
}

func alertTitle(resource Resource, path string) string {
	if resource == ResourceDisk && path != "" {
		return fmt.Sprintf("High Disk Usage (%s)", path)
	}
	return fmt.Sprintf("High %s Usage", displayName(resource))
}

func recoveryTitle(resource Resource, path string) string {
	if resource == ResourceDisk && path != "" {
		return fmt.Sprintf("Disk (%s) Usage Recovered", path)
	}
	return fmt.Sprintf("%s Usage Recovered", displayName(resource))
}
