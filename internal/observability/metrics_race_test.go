package observability

import (
	"sync"
	"testing"
)

// TestNewMetricsConcurrency verifies that NewMetrics can be called concurrently
// without causing race conditions
func TestNewMetricsConcurrency(t *testing.T) {
	// Number of concurrent goroutines to test with
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Start multiple goroutines that all try to create metrics concurrently
	for range numGoroutines {
		go func() {
			defer wg.Done()

			// Call NewMetrics - this should not cause a race condition
			metrics, err := NewMetrics()
			if err != nil {
				t.Errorf("NewMetrics failed: %v", err)
				return
			}

			// Verify metrics is not nil
			if metrics == nil {
				t.Error("NewMetrics returned nil")
				return
			}

			// Verify all metric fields are initialized
			if metrics.registry == nil {
				t.Error("metrics.registry is nil")
			}
			if metrics.Dispatch == nil {
				t.Error("metrics.Dispatch is nil")
			}
		}()
	}

	// Wait for all goroutines to complete
	wg.Wait()
}

// TestNewMetricsIsolatedRegistries verifies that separate Metrics instances
// collect independently
func TestNewMetricsIsolatedRegistries(t *testing.T) {
	first, err := NewMetrics()
	if err != nil {
		t.Fatalf("Failed to create first metrics: %v", err)
	}

	second, err := NewMetrics()
	if err != nil {
		t.Fatalf("Failed to create second metrics: %v", err)
	}

	if first == second {
		t.Error("Expected different metrics instances")
	}

	first.Dispatch.RecordSubmission("weather", "accepted")

	families, err := second.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() == "dispatch_submissions_total" {
			t.Error("second registry observed a submission recorded on the first")
		}
	}
}
