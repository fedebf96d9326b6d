package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/observability/metrics"
	"github.com/Tresorkaseka/Flashnotify/internal/telemetry"
)

// Engine defaults. Configuration may override each of them.
const (
	DefaultWorkers        = 5
	DefaultMaxRetries     = 3
	DefaultSendTimeout    = 10 * time.Second
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 30 * time.Second
	DefaultChannelName    = "push"

	// subscriberBufferSize bounds each subscriber's result channel; slow
	// subscribers drop results rather than stalling workers.
	subscriberBufferSize = 16

	// saveTimeout bounds one fire-and-forget repository save.
	saveTimeout = 5 * time.Second
)

// Sentinel errors for dispatcher operations.
var (
	// ErrDispatcherStopped is returned by Submit after Stop has begun.
	ErrDispatcherStopped = errors.Newf("dispatcher is stopped").
				Component("dispatch").
				Category(errors.CategoryDispatch).
				Build()
	// ErrDuplicateSuppressed is returned by Submit when suppression is
	// enabled and an identical request was accepted within the window.
	ErrDuplicateSuppressed = errors.Newf("duplicate notification suppressed").
				Component("dispatch").
				Category(errors.CategoryLimit).
				Build()
)

// SuccessPolicy decides when a round's attempts count as delivery.
type SuccessPolicy string

const (
	// PolicyAny treats the task as delivered once any channel succeeds.
	PolicyAny SuccessPolicy = "any"
	// PolicyAll requires every selected channel to succeed.
	PolicyAll SuccessPolicy = "all"
)

// Config holds dispatcher configuration.
type Config struct {
	// Workers is the size of the worker pool
	Workers int
	// QueueCapacity bounds the total number of in-flight tasks
	QueueCapacity int
	// MaxRetries is the maximum number of execution rounds per task
	MaxRetries int
	// RetryBaseDelay is the backoff before the first retry round
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps the backoff delay
	RetryMaxDelay time.Duration
	// SendTimeout bounds one transport call
	SendTimeout time.Duration
	// DefaultChannel receives non-critical requests without a usable preference
	DefaultChannel string
	// PerfWindow is the number of performance samples retained per channel
	PerfWindow int
	// SuccessPolicy decides when a round counts as delivered
	SuccessPolicy SuccessPolicy
	// Breaker configures the per-channel circuit breakers
	Breaker CircuitBreakerConfig
	// Suppression enables duplicate suppression when true
	Suppression bool
	// SuppressionWindow is how long duplicates are suppressed
	SuppressionWindow time.Duration
}

// DefaultConfig returns the standard dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:        DefaultWorkers,
		QueueCapacity:  DefaultQueueCapacity,
		MaxRetries:     DefaultMaxRetries,
		RetryBaseDelay: DefaultRetryBaseDelay,
		RetryMaxDelay:  DefaultRetryMaxDelay,
		SendTimeout:    DefaultSendTimeout,
		DefaultChannel: DefaultChannelName,
		PerfWindow:     DefaultPerfWindow,
		SuccessPolicy:  PolicyAny,
		Breaker:        DefaultCircuitBreakerConfig(),
	}
}

// ConfigFromSettings extracts the dispatcher configuration from the full
// application settings.
func ConfigFromSettings(settings *conf.Settings) Config {
	return Config{
		Workers:        settings.Dispatch.Workers,
		QueueCapacity:  settings.Dispatch.QueueSize,
		MaxRetries:     settings.Dispatch.MaxRetries,
		RetryBaseDelay: settings.Dispatch.RetryBaseDelay,
		RetryMaxDelay:  settings.Dispatch.RetryMaxDelay,
		SendTimeout:    settings.Dispatch.SendTimeout,
		DefaultChannel: settings.Dispatch.DefaultChannel,
		PerfWindow:     settings.Dispatch.PerfWindow,
		SuccessPolicy:  SuccessPolicy(settings.Dispatch.SuccessPolicy),
		Breaker: CircuitBreakerConfig{
			MaxFailures: settings.Circuit.MaxFailures,
			Cooldown:    settings.Circuit.Cooldown,
		},
		Suppression:       settings.Dispatch.Suppress.Enabled,
		SuppressionWindow: settings.Dispatch.Suppress.Window,
	}
}

func (c *Config) normalize() {
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if c.QueueCapacity < 1 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	if c.DefaultChannel == "" {
		c.DefaultChannel = DefaultChannelName
	}
	if c.SuccessPolicy != PolicyAll {
		c.SuccessPolicy = PolicyAny
	}
	if c.Breaker.MaxFailures < 1 {
		c.Breaker = DefaultCircuitBreakerConfig()
	}
}

// subscriber receives terminal results until its context is cancelled.
type subscriber struct {
	ch     chan *notification.DispatchResult
	ctx    context.Context
	cancel context.CancelFunc
}

// Dispatcher orchestrates delivery: it validates and classifies submitted
// requests, queues them, and drives the worker pool that selects channels,
// calls each transport behind its circuit breaker, records outcomes, and
// archives terminal results through the Repository.
type Dispatcher struct {
	cfg        Config
	classifier *Classifier
	registry   *Registry
	selector   *Selector
	queue      *Queue
	recorder   *PerformanceRecorder
	backoff    *Backoff
	repo       notification.Repository
	metrics    *metrics.DispatchMetrics
	suppress   *suppressor
	log        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	workers sync.WaitGroup // worker and retry goroutines
	pending sync.WaitGroup // accepted tasks awaiting a terminal result
	saves   sync.WaitGroup // fire-and-forget repository saves

	subscribersMu sync.Mutex
	subscribers   []*subscriber
	subsClosed    bool

	// submitMu lets Stop flush in-flight submissions before draining, so a
	// task can never slip into the queue after shutdown resolved it.
	submitMu sync.RWMutex
	started  atomic.Bool
	stopped  atomic.Bool
}

// New creates a dispatcher. The repository may be nil to skip archival;
// metrics may be nil. Channels are registered through Register before Start.
func New(cfg Config, repo notification.Repository, dispatchMetrics *metrics.DispatchMetrics) *Dispatcher {
	cfg.normalize()
	if repo == nil {
		repo = notification.NopRepository{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:        cfg,
		classifier: NewClassifier(),
		registry:   NewRegistry(cfg.Breaker, dispatchMetrics),
		queue:      NewQueue(cfg.QueueCapacity, dispatchMetrics),
		recorder:   NewPerformanceRecorder(cfg.PerfWindow),
		backoff:    NewBackoff(cfg.RetryBaseDelay, cfg.RetryMaxDelay),
		repo:       repo,
		metrics:    dispatchMetrics,
		log:        getLogger(),
		ctx:        ctx,
		cancel:     cancel,
	}
	d.selector = NewSelector(d.registry, cfg.DefaultChannel)
	if cfg.Suppression {
		d.suppress = newSuppressor(cfg.SuppressionWindow)
	}
	return d
}

// Register adds a delivery channel. Intended to run during startup before
// Start; last registration under a name wins.
func (d *Dispatcher) Register(name string, transport notification.Transport) error {
	return d.registry.Register(name, transport)
}

// Resolve returns the channel registered under name.
func (d *Dispatcher) Resolve(name string) (*Channel, error) {
	return d.registry.Resolve(name)
}

// ListChannels returns registered channel names in registration order.
func (d *Dispatcher) ListChannels() []string {
	return d.registry.List()
}

// IsOpen reports whether the named channel's circuit breaker currently
// rejects calls. Unknown channels report false.
func (d *Dispatcher) IsOpen(name string) bool {
	ch, err := d.registry.Resolve(name)
	if err != nil {
		return false
	}
	return ch.Breaker().IsOpen()
}

// Average returns the mean recorded delivery duration for a channel.
func (d *Dispatcher) Average(channel string) time.Duration {
	return d.recorder.Average(channel)
}

// PerformanceSnapshot returns all retained performance samples.
func (d *Dispatcher) PerformanceSnapshot() []PerformanceSample {
	return d.recorder.Snapshot()
}

// Start launches the worker pool. It is an error to start twice.
func (d *Dispatcher) Start() error {
	if !d.started.CompareAndSwap(false, true) {
		return errors.Newf("dispatcher already started").
			Component("dispatch").
			Category(errors.CategoryDispatch).
			Build()
	}

	for i := range d.cfg.Workers {
		d.workers.Add(1)
		go d.worker(i)
	}

	d.log.Info("dispatcher started",
		"workers", d.cfg.Workers,
		"queue_capacity", d.cfg.QueueCapacity,
		"max_retries", d.cfg.MaxRetries,
		"send_timeout", d.cfg.SendTimeout,
		"default_channel", d.cfg.DefaultChannel,
		"success_policy", string(d.cfg.SuccessPolicy),
		"suppression", d.cfg.Suppression)
	return nil
}

// Submit validates and enqueues a request, returning a handle that resolves
// once the task reaches a terminal result. It never blocks on delivery.
// Immediate errors are limited to malformed input, duplicate suppression,
// queue saturation, and a stopped dispatcher.
func (d *Dispatcher) Submit(n *notification.Notification) (*Handle, error) {
	d.submitMu.RLock()
	defer d.submitMu.RUnlock()

	if d.stopped.Load() {
		return nil, ErrDispatcherStopped
	}

	if err := n.Validate(); err != nil {
		d.recordSubmission(n, metrics.SubmissionInvalid)
		return nil, err
	}

	priority, err := d.classifier.Classify(n.Category)
	if err != nil {
		d.recordSubmission(n, metrics.SubmissionInvalid)
		return nil, err
	}

	if d.suppress != nil && d.suppress.isDuplicate(n) {
		d.recordSubmission(n, metrics.SubmissionSuppressed)
		d.log.Debug("duplicate notification suppressed",
			"notification_id", n.ID,
			"recipient_id", n.Recipient.ID,
			"category", n.Category.String())
		return nil, ErrDuplicateSuppressed
	}

	task := &Task{
		Notification: n,
		Priority:     priority,
		// The category tag is applied exactly once per request
		Title:  notification.FormatTitle(n.Category, n.Title),
		handle: newHandle(n.ID),
	}

	d.pending.Add(1)
	if err := d.queue.Submit(task); err != nil {
		d.pending.Done()
		if d.suppress != nil {
			d.suppress.forget(n)
		}
		d.recordSubmission(n, metrics.SubmissionQueueFull)
		return nil, errors.Newf("queue at capacity %d: %w", d.queue.Capacity(), ErrQueueFull).
			Component("dispatch").
			Category(errors.CategoryQueue).
			Context("capacity", d.queue.Capacity()).
			Build()
	}

	d.recordSubmission(n, metrics.SubmissionAccepted)
	d.log.Debug("notification accepted",
		"notification_id", n.ID,
		"recipient_id", n.Recipient.ID,
		"category", n.Category.String(),
		"priority", priority.String(),
		"queued", d.queue.Len())
	return task.handle, nil
}

// SubmitSync submits the request and blocks until its terminal result or
// until ctx is done. Delivery failure is data, not an error: the result is
// returned even when every attempt failed. Only malformed input, queue
// saturation, suppression, or ctx expiry produce an error.
func (d *Dispatcher) SubmitSync(ctx context.Context, n *notification.Notification) (*notification.DispatchResult, error) {
	handle, err := d.Submit(n)
	if err != nil {
		return nil, err
	}
	return handle.Wait(ctx)
}

// Subscribe returns a channel receiving every terminal result produced
// after the call. The subscription ends when ctx is done; slow subscribers
// drop results rather than stalling dispatch.
func (d *Dispatcher) Subscribe(ctx context.Context) <-chan *notification.DispatchResult {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscriber{
		ch:     make(chan *notification.DispatchResult, subscriberBufferSize),
		ctx:    subCtx,
		cancel: cancel,
	}

	d.subscribersMu.Lock()
	if d.subsClosed {
		d.subscribersMu.Unlock()
		cancel()
		close(sub.ch)
		return sub.ch
	}
	d.subscribers = append(d.subscribers, sub)
	total := len(d.subscribers)
	d.subscribersMu.Unlock()

	d.log.Debug("result subscriber added", "total_subscribers", total)
	return sub.ch
}

// Stop gracefully shuts the dispatcher down: new submissions are rejected,
// accepted tasks are drained until ctx expires, then remaining work is
// resolved as canceled. Every accepted task still resolves; pending archive
// saves are awaited.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if !d.stopped.CompareAndSwap(false, true) {
		return nil
	}

	// Barrier: submissions in flight either land before this point or see
	// the stopped flag.
	d.submitMu.Lock()
	d.submitMu.Unlock() //nolint:staticcheck // empty critical section is the barrier

	d.log.Info("dispatcher stopping", "in_flight", d.queue.Len())

	drained := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(drained)
	}()

	var stopErr error
	select {
	case <-drained:
	case <-ctx.Done():
		stopErr = ctx.Err()
		d.log.Warn("drain deadline reached, canceling remaining tasks",
			"in_flight", d.queue.Len())
	}

	// Stop workers and retry waiters; in-flight transport calls are
	// canceled. The queue is drained only after every worker has exited,
	// because a retry firing concurrently with the cancel may still
	// requeue its task.
	d.cancel()
	d.workers.Wait()
	for _, task := range d.queue.Drain() {
		d.finalize(task, notification.StatusCanceled, "dispatcher stopped")
	}
	d.pending.Wait()
	d.saves.Wait()

	d.subscribersMu.Lock()
	d.subsClosed = true
	for _, sub := range d.subscribers {
		sub.cancel()
		close(sub.ch)
	}
	d.subscribers = nil
	d.subscribersMu.Unlock()

	d.log.Info("dispatcher stopped")
	return stopErr
}

// worker pulls tasks off the queue until the dispatcher shuts down.
func (d *Dispatcher) worker(id int) {
	defer d.workers.Done()

	log := d.log.With("worker", id)
	log.Debug("worker started")

	for {
		task, err := d.queue.Next(d.ctx)
		if err != nil {
			log.Debug("worker stopping", "reason", err)
			return
		}
		d.process(task)
	}
}

// process runs one execution round for a task and decides its fate:
// terminal result or a retry round after backoff.
func (d *Dispatcher) process(task *Task) {
	if d.metrics != nil {
		d.metrics.AddActiveTask(1)
		defer d.metrics.AddActiveTask(-1)
	}

	if d.ctx.Err() != nil {
		d.finalize(task, notification.StatusCanceled, "dispatcher stopped")
		return
	}

	// The deadline is checked before each round; a task past its deadline
	// is finalized without another attempt.
	if task.Notification.Expired(time.Now()) {
		d.finalize(task, notification.StatusExpired, "deadline exceeded before attempt")
		return
	}

	task.Round++

	channels, err := d.selector.Select(task.Priority, task.Notification)
	if err != nil {
		// Configuration mismatches are terminal, they never enter the
		// retry path.
		d.finalize(task, notification.StatusFailed, err.Error())
		return
	}

	// Channels that already succeeded in an earlier round are not
	// re-attempted; a round records at most one attempt per channel.
	pending := make([]*Channel, 0, len(channels))
	for _, ch := range channels {
		if !task.succeededBefore(ch.Name()) {
			pending = append(pending, ch)
		}
	}
	if len(pending) == 0 {
		d.finalize(task, notification.StatusSent, "")
		return
	}

	// Channels are independent: attempts within a round run concurrently.
	outcomes := make([]attemptOutcome, len(pending))
	var wg sync.WaitGroup
	for i, ch := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = d.attempt(task, ch)
		}()
	}
	wg.Wait()

	anyRetryable := false
	for i := range outcomes {
		task.recordAttempt(outcomes[i].attempt)
		if outcomes[i].attempt.Succeeded {
			task.markSucceeded(outcomes[i].attempt.Channel)
		} else if outcomes[i].retryable {
			anyRetryable = true
		}
	}

	if d.delivered(task, channels) {
		d.finalize(task, notification.StatusSent, "")
		return
	}

	if anyRetryable && task.Round < d.cfg.MaxRetries {
		if d.ctx.Err() != nil {
			d.finalize(task, notification.StatusCanceled, "dispatcher stopped")
			return
		}
		d.scheduleRetry(task)
		return
	}

	d.finalize(task, notification.StatusFailed, "all delivery attempts failed")
}

// attemptOutcome pairs the recorded attempt with retry information only the
// engine needs.
type attemptOutcome struct {
	attempt   notification.DeliveryAttempt
	retryable bool
}

// attempt performs one breaker-guarded transport call and records the
// outcome: a DeliveryAttempt, a performance sample, and metrics, regardless
// of how the call went.
func (d *Dispatcher) attempt(task *Task, ch *Channel) attemptOutcome {
	n := task.Notification
	start := time.Now()

	attemptCtx, cancel := context.WithTimeout(d.ctx, d.cfg.SendTimeout)
	defer cancel()

	err := ch.Breaker().Call(attemptCtx, func(callCtx context.Context) error {
		return ch.Transport().Send(callCtx, n.Recipient, task.Title, n.Body)
	})
	duration := time.Since(start)

	d.recorder.Record(ch.Name(), duration)

	attempt := notification.DeliveryAttempt{
		Channel:   ch.Name(),
		Round:     task.Round,
		Succeeded: err == nil,
		Duration:  duration,
		At:        start,
	}

	status := metrics.StatusSuccess
	retryable := false
	if err != nil {
		attempt.Error = err.Error()
		attempt.CircuitOpen = errors.Is(err, ErrCircuitOpen)
		// A breaker rejection is not a transport failure and never
		// consumes a retry round on its own.
		retryable = !attempt.CircuitOpen && notification.IsRetryable(err)

		status = metrics.StatusError
		if attempt.CircuitOpen {
			status = metrics.StatusCircuitOpen
		}
		if d.metrics != nil {
			d.metrics.RecordDeliveryError(ch.Name(), n.Category.String(), errorCategory(err))
		}
		d.log.Warn("delivery attempt failed",
			"notification_id", n.ID,
			"channel", ch.Name(),
			"round", task.Round,
			"circuit_open", attempt.CircuitOpen,
			"retryable", retryable,
			"duration", duration,
			"error", err)
	} else {
		d.log.Debug("delivery attempt succeeded",
			"notification_id", n.ID,
			"channel", ch.Name(),
			"round", task.Round,
			"duration", duration)
	}

	if d.metrics != nil {
		d.metrics.RecordDelivery(ch.Name(), n.Category.String(), status, duration)
	}

	return attemptOutcome{attempt: attempt, retryable: retryable}
}

// delivered applies the success policy to the task's cumulative outcomes.
func (d *Dispatcher) delivered(task *Task, selected []*Channel) bool {
	if d.cfg.SuccessPolicy == PolicyAll {
		for _, ch := range selected {
			if !task.succeededBefore(ch.Name()) {
				return false
			}
		}
		return true
	}
	return task.successCount() > 0
}

// scheduleRetry re-enqueues the task after an exponential backoff delay.
// The task keeps its queue slot, so the re-enqueue cannot be rejected.
func (d *Dispatcher) scheduleRetry(task *Task) {
	delay := d.backoff.NextDelay(task.Round)

	if d.metrics != nil {
		d.metrics.RecordTaskRetry(task.Priority.String())
	}
	d.log.Info("retrying notification",
		"notification_id", task.Notification.ID,
		"round", task.Round,
		"max_retries", d.cfg.MaxRetries,
		"delay", delay)

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			d.queue.Requeue(task)
		case <-d.ctx.Done():
			d.finalize(task, notification.StatusCanceled, "dispatcher stopped")
		}
	}()
}

// finalize produces the task's terminal result: it resolves the handle,
// frees the queue slot, hands the result to the repository, and broadcasts
// it to subscribers. Every accepted task passes through here exactly once.
func (d *Dispatcher) finalize(task *Task, status notification.ResultStatus, errMsg string) {
	n := task.Notification
	result := &notification.DispatchResult{
		ID:             uuid.NewString(),
		NotificationID: n.ID,
		Recipient:      n.Recipient,
		Category:       n.Category,
		Priority:       task.Priority,
		Status:         status,
		Title:          task.Title,
		Body:           n.Body,
		Attempts:       task.Attempts,
		Rounds:         task.Round,
		Error:          errMsg,
		EnqueuedAt:     task.EnqueuedAt,
		CompletedAt:    time.Now(),
	}

	task.handle.resolve(result)
	d.queue.Release(task)
	d.pending.Done()

	if d.metrics != nil {
		d.metrics.RecordTaskCompleted(task.Priority.String(), string(status))
	}

	level := slog.LevelInfo
	if !result.Succeeded() {
		level = slog.LevelWarn
	}
	d.log.Log(context.Background(), level, "dispatch completed",
		"notification_id", n.ID,
		"recipient_id", n.Recipient.ID,
		"category", n.Category.String(),
		"priority", task.Priority.String(),
		"status", string(status),
		"rounds", task.Round,
		"attempts", len(task.Attempts),
		"successful_channels", result.SuccessfulChannels(),
		"duration", result.Duration())

	// Exhausted and expired deliveries are worth an operator's attention.
	// The message carries counts and classification only, no recipient data.
	if status == notification.StatusFailed || status == notification.StatusExpired {
		telemetry.CaptureMessage(
			fmt.Sprintf("notification delivery %s: category=%s priority=%s attempts=%d rounds=%d",
				status, n.Category, task.Priority, len(task.Attempts), task.Round),
			sentry.LevelError, "dispatch")
	}

	d.save(result)
	d.broadcast(result)
}

// save hands the result to the repository without blocking dispatch. Save
// failures are logged, never retried.
func (d *Dispatcher) save(result *notification.DispatchResult) {
	d.saves.Add(1)
	go func() {
		defer d.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := d.repo.Save(ctx, result); err != nil {
			if d.metrics != nil {
				d.metrics.RecordArchiveSave(metrics.StatusError)
			}
			d.log.Error("failed to archive dispatch result",
				"notification_id", result.NotificationID,
				"error", err)
			return
		}
		if d.metrics != nil {
			d.metrics.RecordArchiveSave(metrics.StatusSuccess)
		}
	}()
}

// broadcast fans the result out to active subscribers, pruning cancelled
// ones. Full subscriber buffers drop the result.
func (d *Dispatcher) broadcast(result *notification.DispatchResult) {
	d.subscribersMu.Lock()
	defer d.subscribersMu.Unlock()

	active := d.subscribers[:0]
	for _, sub := range d.subscribers {
		select {
		case <-sub.ctx.Done():
			close(sub.ch)
			continue
		default:
		}
		active = append(active, sub)

		select {
		case sub.ch <- result:
		default:
			d.log.Debug("subscriber buffer full, dropping result",
				"notification_id", result.NotificationID)
		}
	}
	d.subscribers = active
}

func (d *Dispatcher) recordSubmission(n *notification.Notification, outcome string) {
	if d.metrics == nil {
		return
	}
	category := "unknown"
	if n != nil && n.Category.Valid() {
		category = n.Category.String()
	}
	d.metrics.RecordSubmission(category, outcome)
}

// errorCategory extracts the structured error category for metrics labels.
func errorCategory(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}

// recordAttempt stores the channel's outcome for this round. A retried
// channel keeps its original list position with the newer attempt replacing
// the old, so a result never carries two entries for one channel; the
// attempt's Round field shows how many rounds it took.
func (t *Task) recordAttempt(a notification.DeliveryAttempt) {
	for i := range t.Attempts {
		if t.Attempts[i].Channel == a.Channel {
			t.Attempts[i] = a
			return
		}
	}
	t.Attempts = append(t.Attempts, a)
}

// succeededBefore reports whether the channel already delivered in an
// earlier round.
func (t *Task) succeededBefore(channel string) bool {
	return t.succeededChannels[channel]
}

func (t *Task) markSucceeded(channel string) {
	if t.succeededChannels == nil {
		t.succeededChannels = make(map[string]bool, 4)
	}
	t.succeededChannels[channel] = true
}

func (t *Task) successCount() int {
	return len(t.succeededChannels)
}
