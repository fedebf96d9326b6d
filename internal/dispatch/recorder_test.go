package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecorderAverage(t *testing.T) {
	t.Parallel()

	r := NewPerformanceRecorder(8)

	r.Record("email", 100*time.Millisecond)
	r.Record("email", 200*time.Millisecond)
	r.Record("email", 300*time.Millisecond)

	assert.Equal(t, 200*time.Millisecond, r.Average("email"))
}

func TestRecorderAverageUnknownOperation(t *testing.T) {
	t.Parallel()

	r := NewPerformanceRecorder(8)
	assert.Equal(t, time.Duration(0), r.Average("never-recorded"))
}

func TestRecorderWindowKeepsMostRecentSamples(t *testing.T) {
	t.Parallel()

	r := NewPerformanceRecorder(4)

	// Six samples through a window of four: the first two fall out
	for i := 1; i <= 6; i++ {
		r.Record("sms", time.Duration(i)*time.Millisecond)
	}

	stats := r.Stats("sms")
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 3*time.Millisecond, stats.Min)
	assert.Equal(t, 6*time.Millisecond, stats.Max)
	// (3+4+5+6)/4 = 4.5ms
	assert.Equal(t, 4500*time.Microsecond, stats.Average)
}

func TestRecorderStatsUnknownOperation(t *testing.T) {
	t.Parallel()

	r := NewPerformanceRecorder(4)
	stats := r.Stats("unknown")
	assert.Equal(t, 0, stats.Count)
	assert.Equal(t, time.Duration(0), stats.Average)
}

func TestRecorderSnapshotOrdering(t *testing.T) {
	t.Parallel()

	r := NewPerformanceRecorder(4)
	r.Record("sms", 2*time.Millisecond)
	r.Record("email", 1*time.Millisecond)
	r.Record("sms", 3*time.Millisecond)

	snapshot := r.Snapshot()
	assert.Len(t, snapshot, 3)

	// Operations are sorted, samples within one operation oldest first
	assert.Equal(t, "email", snapshot[0].Operation)
	assert.Equal(t, "sms", snapshot[1].Operation)
	assert.Equal(t, 2*time.Millisecond, snapshot[1].Duration)
	assert.Equal(t, 3*time.Millisecond, snapshot[2].Duration)

	assert.Equal(t, []string{"email", "sms"}, r.Operations())
}

func TestRecorderConcurrentRecording(t *testing.T) {
	t.Parallel()

	r := NewPerformanceRecorder(64)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for i := range 100 {
				r.Record("push", time.Duration(i+1)*time.Microsecond)
				_ = r.Average("push")
			}
		})
	}
	wg.Wait()

	stats := r.Stats("push")
	assert.Equal(t, 64, stats.Count)
	assert.Positive(t, stats.Average)
}

func TestRecorderDefaultWindow(t *testing.T) {
	t.Parallel()

	// Non-positive windows fall back to the default
	r := NewPerformanceRecorder(0)
	r.Record("email", time.Millisecond)
	assert.Equal(t, 1, r.Stats("email").Count)
}
