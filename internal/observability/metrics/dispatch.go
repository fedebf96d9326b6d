// Package metrics provides custom Prometheus metrics for dispatch operations.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery status label values.
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusCircuitOpen = "circuit_open"
)

// Submission outcome label values.
const (
	SubmissionAccepted   = "accepted"
	SubmissionInvalid    = "validation_error"
	SubmissionQueueFull  = "queue_full"
	SubmissionSuppressed = "suppressed"
)

// DispatchMetrics contains all Prometheus metrics related to the dispatch
// engine and its channel transports.
type DispatchMetrics struct {
	// Channel delivery metrics
	DeliveriesTotal  *prometheus.CounterVec   // Total delivery attempts by channel, category, status
	DeliveryDuration *prometheus.HistogramVec // Latency by channel and category
	DeliveryErrors   *prometheus.CounterVec   // Errors by channel, category, error_category

	// Channel health metrics
	ChannelHealthStatus    *prometheus.GaugeVec // Current health (1=healthy, 0=unhealthy) by channel
	CircuitBreakerState    *prometheus.GaugeVec // Breaker state (0=closed, 1=half-open, 2=open) by channel
	ConsecutiveFailures    *prometheus.GaugeVec // Consecutive failure count by channel
	ChannelLastSuccessTime *prometheus.GaugeVec // Timestamp of last successful delivery by channel

	// Queue and task metrics
	SubmissionsTotal *prometheus.CounterVec // Submissions by category and outcome
	TasksCompleted   *prometheus.CounterVec // Terminal results by priority and status
	TaskRetriesTotal *prometheus.CounterVec // Retry rounds consumed by priority
	QueueDepth       *prometheus.GaugeVec   // Queued tasks by priority tier
	DispatchActive   prometheus.Gauge       // Tasks currently being processed

	// Archive metrics
	ArchiveSaves *prometheus.CounterVec // Repository save outcomes by status

	registry *prometheus.Registry
}

// NewDispatchMetrics creates a new instance of DispatchMetrics and registers
// it with the given Prometheus registry.
func NewDispatchMetrics(registry *prometheus.Registry) (*DispatchMetrics, error) {
	m := &DispatchMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register dispatch metrics: %w", err)
	}
	return m, nil
}

func (m *DispatchMetrics) initMetrics() {
	m.DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_deliveries_total",
			Help: "Total number of delivery attempts by channel, category, and status",
		},
		[]string{"channel", "category", "status"},
	)

	m.DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_delivery_duration_seconds",
			Help:    "Time taken for one delivery attempt by channel and category",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}, // 10ms to 30s
		},
		[]string{"channel", "category"},
	)

	m.DeliveryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_delivery_errors_total",
			Help: "Total number of delivery errors by channel, category, and error category",
		},
		[]string{"channel", "category", "error_category"},
	)

	m.ChannelHealthStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_channel_health_status",
			Help: "Current health status of a delivery channel (1=healthy, 0=unhealthy)",
		},
		[]string{"channel"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_channel_circuit_breaker_state",
			Help: "Circuit breaker state for a delivery channel (0=closed, 1=half-open, 2=open)",
		},
		[]string{"channel"},
	)

	m.ConsecutiveFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_channel_consecutive_failures",
			Help: "Number of consecutive failures for a delivery channel",
		},
		[]string{"channel"},
	)

	m.ChannelLastSuccessTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_channel_last_success_timestamp_seconds",
			Help: "Timestamp of last successful delivery by channel",
		},
		[]string{"channel"},
	)

	m.SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_submissions_total",
			Help: "Total number of submissions by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	m.TasksCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_tasks_completed_total",
			Help: "Total number of terminal dispatch results by priority and status",
		},
		[]string{"priority", "status"},
	)

	m.TaskRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_task_retries_total",
			Help: "Total number of retry rounds consumed by priority",
		},
		[]string{"priority"},
	)

	m.QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_queue_depth",
			Help: "Current number of queued tasks by priority tier",
		},
		[]string{"priority"},
	)

	m.DispatchActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_active_tasks",
			Help: "Number of tasks currently being processed by workers",
		},
	)

	m.ArchiveSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_archive_saves_total",
			Help: "Total number of repository save outcomes by status",
		},
		[]string{"status"},
	)
}

// RecordDelivery records one delivery attempt outcome.
func (m *DispatchMetrics) RecordDelivery(channel, category, status string, duration time.Duration) {
	m.DeliveriesTotal.WithLabelValues(channel, category, status).Inc()
	m.DeliveryDuration.WithLabelValues(channel, category).Observe(duration.Seconds())

	if status == StatusSuccess {
		m.ChannelLastSuccessTime.WithLabelValues(channel).SetToCurrentTime()
		m.ConsecutiveFailures.WithLabelValues(channel).Set(0)
	}
}

// RecordDeliveryError records a delivery error with its category.
func (m *DispatchMetrics) RecordDeliveryError(channel, category, errorCategory string) {
	m.DeliveryErrors.WithLabelValues(channel, category, errorCategory).Inc()
}

// RecordSubmission records one submission outcome.
func (m *DispatchMetrics) RecordSubmission(category, outcome string) {
	m.SubmissionsTotal.WithLabelValues(category, outcome).Inc()
}

// RecordTaskCompleted records one terminal dispatch result.
func (m *DispatchMetrics) RecordTaskCompleted(priority, status string) {
	m.TasksCompleted.WithLabelValues(priority, status).Inc()
}

// RecordTaskRetry records one consumed retry round.
func (m *DispatchMetrics) RecordTaskRetry(priority string) {
	m.TaskRetriesTotal.WithLabelValues(priority).Inc()
}

// SetQueueDepth sets the queued task count for one priority tier.
func (m *DispatchMetrics) SetQueueDepth(priority string, depth int) {
	m.QueueDepth.WithLabelValues(priority).Set(float64(depth))
}

// AddActiveTask adjusts the active task gauge by delta.
func (m *DispatchMetrics) AddActiveTask(delta int) {
	m.DispatchActive.Add(float64(delta))
}

// RecordArchiveSave records one repository save outcome.
func (m *DispatchMetrics) RecordArchiveSave(status string) {
	m.ArchiveSaves.WithLabelValues(status).Inc()
}

// UpdateHealthStatus updates the health status of a channel.
func (m *DispatchMetrics) UpdateHealthStatus(channel string, healthy bool) {
	if healthy {
		m.ChannelHealthStatus.WithLabelValues(channel).Set(1)
	} else {
		m.ChannelHealthStatus.WithLabelValues(channel).Set(0)
	}
}

// UpdateCircuitBreakerState updates the circuit breaker state gauge.
// state: 0=closed, 1=half-open, 2=open
func (m *DispatchMetrics) UpdateCircuitBreakerState(channel string, state int) {
	m.CircuitBreakerState.WithLabelValues(channel).Set(float64(state))
}

// IncrementConsecutiveFailures increments the consecutive failure count.
func (m *DispatchMetrics) IncrementConsecutiveFailures(channel string) {
	m.ConsecutiveFailures.WithLabelValues(channel).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *DispatchMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DeliveriesTotal.Collect(ch)
	m.DeliveryDuration.Collect(ch)
	m.DeliveryErrors.Collect(ch)
	m.ChannelHealthStatus.Collect(ch)
	m.CircuitBreakerState.Collect(ch)
	m.ConsecutiveFailures.Collect(ch)
	m.ChannelLastSuccessTime.Collect(ch)
	m.SubmissionsTotal.Collect(ch)
	m.TasksCompleted.Collect(ch)
	m.TaskRetriesTotal.Collect(ch)
	m.QueueDepth.Collect(ch)
	m.DispatchActive.Collect(ch)
	m.ArchiveSaves.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *DispatchMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DeliveriesTotal.Describe(ch)
	m.DeliveryDuration.Describe(ch)
	m.DeliveryErrors.Describe(ch)
	m.ChannelHealthStatus.Describe(ch)
	m.CircuitBreakerState.Describe(ch)
	m.ConsecutiveFailures.Describe(ch)
	m.ChannelLastSuccessTime.Describe(ch)
	m.SubmissionsTotal.Describe(ch)
	m.TasksCompleted.Describe(ch)
	m.TaskRetriesTotal.Describe(ch)
	m.QueueDepth.Describe(ch)
	m.DispatchActive.Describe(ch)
	m.ArchiveSaves.Describe(ch)
}

// StartDeliveryTimer creates a timer for measuring one delivery attempt.
func (m *DispatchMetrics) StartDeliveryTimer() *DeliveryTimer {
	return &DeliveryTimer{startTime: time.Now(), metrics: m}
}

// DeliveryTimer is a helper for measuring delivery duration.
type DeliveryTimer struct {
	startTime time.Time
	metrics   *DispatchMetrics
}

// ObserveDuration stops the timer and records the duration with the
// delivery status.
func (dt *DeliveryTimer) ObserveDuration(channel, category, status string) {
	dt.metrics.RecordDelivery(channel, category, status, time.Since(dt.startTime))
}
