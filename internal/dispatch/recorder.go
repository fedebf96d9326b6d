package dispatch

import (
	"sort"
	"sync"
	"time"
)

// DefaultPerfWindow is the number of samples retained per operation before
// the oldest are evicted.
const DefaultPerfWindow = 1024

// PerformanceSample is one timed operation measurement.
type PerformanceSample struct {
	// Operation names what was measured, typically a channel name
	Operation string `json:"operation"`
	// Duration is how long the operation took
	Duration time.Duration `json:"duration"`
	// Timestamp indicates when the sample was recorded
	Timestamp time.Time `json:"timestamp"`
}

// OperationStats summarizes the retained samples for one operation.
type OperationStats struct {
	Count   int           `json:"count"`
	Average time.Duration `json:"average"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
}

// perfBucket is a drop-oldest ring of samples with its own lock, so writers
// on unrelated operations never contend.
type perfBucket struct {
	mu      sync.Mutex
	samples []PerformanceSample
	next    int
	full    bool
}

func (b *perfBucket) record(s PerformanceSample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples[b.next] = s
	b.next++
	if b.next == len(b.samples) {
		b.next = 0
		b.full = true
	}
}

// ordered returns retained samples oldest first. Callers receive a copy.
func (b *perfBucket) ordered() []PerformanceSample {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		out := make([]PerformanceSample, b.next)
		copy(out, b.samples[:b.next])
		return out
	}
	out := make([]PerformanceSample, 0, len(b.samples))
	out = append(out, b.samples[b.next:]...)
	out = append(out, b.samples[:b.next]...)
	return out
}

func (b *perfBucket) stats() OperationStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.next
	if b.full {
		n = len(b.samples)
	}
	if n == 0 {
		return OperationStats{}
	}
	var total, minDur, maxDur time.Duration
	for i := range n {
		d := b.samples[i].Duration
		total += d
		if i == 0 || d < minDur {
			minDur = d
		}
		if d > maxDur {
			maxDur = d
		}
	}
	return OperationStats{
		Count:   n,
		Average: total / time.Duration(n),
		Min:     minDur,
		Max:     maxDur,
	}
}

// PerformanceRecorder keeps a bounded rolling window of timed samples per
// operation. Buckets are sharded by operation name: concurrent workers
// recording for different channels never share a lock. Once a bucket
// reaches the window size the oldest sample is evicted.
type PerformanceRecorder struct {
	mu      sync.RWMutex
	buckets map[string]*perfBucket
	window  int
}

// NewPerformanceRecorder creates a recorder retaining up to window samples
// per operation. window values below 1 fall back to DefaultPerfWindow.
func NewPerformanceRecorder(window int) *PerformanceRecorder {
	if window < 1 {
		window = DefaultPerfWindow
	}
	return &PerformanceRecorder{
		buckets: make(map[string]*perfBucket),
		window:  window,
	}
}

// Record appends one sample for the operation.
func (r *PerformanceRecorder) Record(operation string, duration time.Duration) {
	r.bucket(operation).record(PerformanceSample{
		Operation: operation,
		Duration:  duration,
		Timestamp: time.Now(),
	})
}

// Average returns the mean duration over the retained samples for the
// operation, or zero when nothing has been recorded.
func (r *PerformanceRecorder) Average(operation string) time.Duration {
	b := r.lookup(operation)
	if b == nil {
		return 0
	}
	return b.stats().Average
}

// Stats returns the summary for one operation.
func (r *PerformanceRecorder) Stats(operation string) OperationStats {
	b := r.lookup(operation)
	if b == nil {
		return OperationStats{}
	}
	return b.stats()
}

// Snapshot returns all retained samples across operations, oldest first
// within each operation, operations in sorted name order.
func (r *PerformanceRecorder) Snapshot() []PerformanceSample {
	r.mu.RLock()
	names := make([]string, 0, len(r.buckets))
	for name := range r.buckets {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	var out []PerformanceSample
	for _, name := range names {
		if b := r.lookup(name); b != nil {
			out = append(out, b.ordered()...)
		}
	}
	return out
}

// Operations returns the operation names with recorded samples, sorted.
func (r *PerformanceRecorder) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.buckets))
	for name := range r.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *PerformanceRecorder) bucket(operation string) *perfBucket {
	if b := r.lookup(operation); b != nil {
		return b
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[operation]; ok {
		return b
	}
	b := &perfBucket{samples: make([]PerformanceSample, r.window)}
	r.buckets[operation] = b
	return b
}

func (r *PerformanceRecorder) lookup(operation string) *perfBucket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buckets[operation]
}
