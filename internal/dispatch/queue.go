package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
	"github.com/Tresorkaseka/Flashnotify/internal/observability/metrics"
)

// DefaultQueueCapacity bounds the total number of in-flight tasks.
const DefaultQueueCapacity = 100

// ErrQueueFull is returned by Submit when the queue is at capacity. It is a
// backpressure signal: the caller should retry submission later, the request
// was never accepted.
var ErrQueueFull = errors.Newf("dispatch queue is full").
	Component("dispatch").
	Category(errors.CategoryQueue).
	Build()

// Task is one unit of dispatch work. It carries the request through every
// execution round, accumulating delivery attempts until a terminal result is
// produced. The task holds its queue capacity slot from acceptance until the
// terminal result, so a retry re-enqueue can never be rejected.
type Task struct {
	// Notification is the accepted request
	Notification *notification.Notification
	// Priority is the urgency derived from the request category
	Priority notification.Priority
	// Title is the delivered title, formatted once at submission
	Title string
	// Round counts execution rounds consumed, starting at 0 before the first
	Round int
	// Attempts holds the latest outcome per attempted channel; a retried
	// channel replaces its earlier entry rather than appending a second one
	Attempts []notification.DeliveryAttempt
	// EnqueuedAt indicates when the task was accepted
	EnqueuedAt time.Time

	handle *Handle
	// succeededChannels tracks channels delivered in earlier rounds so a
	// retry round never re-attempts them
	succeededChannels map[string]bool
}

// Handle returns the caller-facing completion handle for the task.
func (t *Task) Handle() *Handle { return t.handle }

// tierOrder is the dequeue preference, most urgent first.
var tierOrder = []notification.Priority{
	notification.PriorityCritical,
	notification.PriorityHigh,
	notification.PriorityMedium,
	notification.PriorityLow,
}

// Queue is a bounded work queue with one FIFO tier per priority. Submission
// is non-blocking: beyond capacity it fails fast with ErrQueueFull. Workers
// dequeue from the highest non-empty tier.
type Queue struct {
	capacity int64
	size     atomic.Int64
	tiers    map[notification.Priority]chan *Task
	metrics  *metrics.DispatchMetrics
}

// NewQueue creates a queue with the given total capacity across all tiers.
// Capacities below 1 fall back to DefaultQueueCapacity.
func NewQueue(capacity int, dispatchMetrics *metrics.DispatchMetrics) *Queue {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	q := &Queue{
		capacity: int64(capacity),
		tiers:    make(map[notification.Priority]chan *Task, len(tierOrder)),
		metrics:  dispatchMetrics,
	}
	// Every tier gets a buffer of the full capacity: a task keeps its
	// capacity slot between dequeue and requeue, so tier occupancy can
	// never exceed the slots held.
	for _, tier := range tierOrder {
		q.tiers[tier] = make(chan *Task, capacity)
	}
	return q
}

// Submit accepts a task if the queue has capacity, claiming a slot that is
// held until Release. Beyond capacity it returns ErrQueueFull without
// blocking.
func (q *Queue) Submit(task *Task) error {
	if q.size.Add(1) > q.capacity {
		q.size.Add(-1)
		return ErrQueueFull
	}
	task.EnqueuedAt = time.Now()
	q.push(task)
	return nil
}

// Requeue puts a task back for another round. The task still holds its
// capacity slot, so the tier buffer always has room.
func (q *Queue) Requeue(task *Task) {
	q.push(task)
}

func (q *Queue) push(task *Task) {
	tier := q.tier(task.Priority)
	q.tiers[tier] <- task
	q.observeDepth(tier)
}

// Next blocks until a task is available or ctx is done. When multiple tiers
// hold work, the highest tier wins; the blocking wait across all tiers only
// begins once every tier is empty.
func (q *Queue) Next(ctx context.Context) (*Task, error) {
	for {
		for _, tier := range tierOrder {
			select {
			case task := <-q.tiers[tier]:
				q.observeDepth(tier)
				return task, nil
			default:
			}
		}

		select {
		case task := <-q.tiers[notification.PriorityCritical]:
			q.observeDepth(notification.PriorityCritical)
			return task, nil
		case task := <-q.tiers[notification.PriorityHigh]:
			q.observeDepth(notification.PriorityHigh)
			return task, nil
		case task := <-q.tiers[notification.PriorityMedium]:
			q.observeDepth(notification.PriorityMedium)
			return task, nil
		case task := <-q.tiers[notification.PriorityLow]:
			q.observeDepth(notification.PriorityLow)
			return task, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release frees the capacity slot held by a task. Called exactly once per
// accepted task, when its terminal result is resolved.
func (q *Queue) Release(task *Task) {
	q.size.Add(-1)
	q.observeDepth(q.tier(task.Priority))
}

// Drain removes all queued tasks without blocking, for shutdown resolution.
// Drained tasks still hold their slots until Release.
func (q *Queue) Drain() []*Task {
	var out []*Task
	for _, tier := range tierOrder {
	drain:
		for {
			select {
			case task := <-q.tiers[tier]:
				out = append(out, task)
			default:
				break drain
			}
		}
		q.observeDepth(tier)
	}
	return out
}

// Len returns the number of accepted tasks currently holding slots,
// including tasks being processed or awaiting a retry round.
func (q *Queue) Len() int {
	return int(q.size.Load())
}

// Capacity returns the total slot capacity.
func (q *Queue) Capacity() int {
	return int(q.capacity)
}

func (q *Queue) tier(p notification.Priority) notification.Priority {
	if _, ok := q.tiers[p]; ok {
		return p
	}
	return notification.PriorityLow
}

func (q *Queue) observeDepth(tier notification.Priority) {
	if q.metrics == nil {
		return
	}
	q.metrics.SetQueueDepth(tier.String(), len(q.tiers[tier]))
}
