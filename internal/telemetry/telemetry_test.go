package telemetry

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

// setupSentry installs a mock transport on the global Sentry hub and marks
// the package initialized. The hub is process-global, so tests that go
// through it must not run in parallel.
func setupSentry(t *testing.T) *MockTransport {
	t.Helper()

	transport := NewMockTransport()
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              "", // empty DSN keeps the SDK offline
		Transport:        transport,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "test",
		Release:          "flashnotify@test",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	require.NoError(t, err)
	initialized.Store(true)

	t.Cleanup(func() {
		sentry.Flush(2 * time.Second)
		initialized.Store(false)
		errors.SetTelemetryReporter(nil)
	})

	return transport
}

func TestCaptureErrorSendsScrubbedEvent(t *testing.T) {
	transport := setupSentry(t)

	CaptureError(fmt.Errorf("connection refused while sending to admin@example.com"), "transport")

	require.Equal(t, 1, transport.EventCount())
	event := transport.LastEvent()

	assert.NotContains(t, event.Message, "admin@example.com")
	assert.Contains(t, event.Message, "[EMAIL]")
	assert.Equal(t, "transport", event.Tags["component"])
	assert.Equal(t, "Transport: Connection Refused", event.Tags["error_title"])
	assert.Equal(t, []string{"Transport: Connection Refused", "transport"}, event.Fingerprint)
	require.Len(t, event.Exception, 1)
	assert.Equal(t, "Transport: Connection Refused", event.Exception[0].Type)
	assert.Equal(t, sentry.LevelError, event.Level)

	// BeforeSend privacy filters ran on the way out.
	assert.True(t, event.User.IsEmpty())
	assert.Empty(t, event.ServerName)
}

func TestCaptureMessageSetsLevelAndComponent(t *testing.T) {
	transport := setupSentry(t)

	CaptureMessage("channel sms circuit opened after 5 consecutive failures", sentry.LevelWarning, "dispatch")

	require.Equal(t, 1, transport.EventCount())
	event := transport.LastEvent()

	assert.Equal(t, "channel sms circuit opened after 5 consecutive failures", event.Message)
	assert.Equal(t, sentry.LevelWarning, event.Level)
	assert.Equal(t, "dispatch", event.Tags["component"])
}

func TestCaptureNoopUntilInitialized(t *testing.T) {
	transport := NewMockTransport()
	err := sentry.Init(sentry.ClientOptions{
		Dsn:       "",
		Transport: transport,
	})
	require.NoError(t, err)
	initialized.Store(false)

	CaptureError(assert.AnError, "dispatch")
	CaptureMessage("never sent", sentry.LevelInfo, "dispatch")
	Flush(time.Second)

	assert.Zero(t, transport.EventCount())
}

func TestReporterSendsEnhancedErrorOnce(t *testing.T) {
	transport := setupSentry(t)
	reporter := newReporter(true)
	require.True(t, reporter.IsEnabled())

	ee := errors.Newf("dial tcp: connection reset by peer").
		Component("transport").
		Category(errors.CategoryNetwork).
		Context("operation", "send_email").
		Build()

	reporter.ReportError(ee)

	require.Equal(t, 1, transport.EventCount())
	event := transport.LastEvent()

	assert.Equal(t, "[network] dial tcp: connection reset by peer", event.Message)
	assert.Equal(t, sentry.LevelWarning, event.Level)
	assert.Equal(t, "transport", event.Tags["component"])
	assert.Equal(t, "network", event.Tags["category"])
	assert.Equal(t, "Transport Network Error Send Email", event.Tags["error_title"])
	require.Len(t, event.Exception, 1)
	assert.Equal(t, "Transport Network Error Send Email", event.Exception[0].Type)
	assert.True(t, ee.IsReported())

	// A reported error travelling up the stack is not captured again.
	reporter.ReportError(ee)
	assert.Equal(t, 1, transport.EventCount())
}

func TestReporterScrubsContextValues(t *testing.T) {
	transport := setupSentry(t)
	reporter := newReporter(true)

	ee := errors.Newf("smtp handshake failed").
		Component("transport").
		Category(errors.CategoryTransport).
		Context("recipient", "ada@example.com").
		Context("attempts", 3).
		Build()

	reporter.ReportError(ee)

	require.Equal(t, 1, transport.EventCount())
	event := transport.LastEvent()

	recipient, ok := event.Contexts["recipient"]
	require.True(t, ok)
	assert.Equal(t, "[EMAIL]", recipient["value"])

	attempts, ok := event.Contexts["attempts"]
	require.True(t, ok)
	assert.Equal(t, 3, attempts["value"])
}

func TestReporterPriorityOverridesLevel(t *testing.T) {
	transport := setupSentry(t)
	reporter := newReporter(true)

	ee := errors.Newf("archive unreachable").
		Component("archive").
		Category(errors.CategoryStore).
		Priority(errors.PriorityCritical).
		Build()

	reporter.ReportError(ee)

	event := transport.LastEvent()
	require.NotNil(t, event)
	assert.Equal(t, sentry.LevelFatal, event.Level)
}

func TestReporterDisabledDropsEvents(t *testing.T) {
	transport := setupSentry(t)
	reporter := newReporter(false)
	assert.False(t, reporter.IsEnabled())

	ee := errors.Newf("boom").
		Component("dispatch").
		Category(errors.CategoryDispatch).
		Build()

	reporter.ReportError(ee)

	assert.Zero(t, transport.EventCount())
	assert.False(t, ee.IsReported())
}

func TestInitDisabledRegistersDisabledReporter(t *testing.T) {
	t.Cleanup(func() { errors.SetTelemetryReporter(nil) })

	require.NoError(t, Init(&conf.Settings{}))

	reporter := errors.GetTelemetryReporter()
	require.NotNil(t, reporter)
	assert.False(t, reporter.IsEnabled())
	assert.False(t, initialized.Load())

	require.NoError(t, Init(nil))
}

func TestInitEnabledRequiresDSN(t *testing.T) {
	t.Cleanup(func() { errors.SetTelemetryReporter(nil) })

	settings := &conf.Settings{}
	settings.Sentry.Enabled = true

	err := Init(settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn")
}

func TestEnhancedErrorTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		component string
		category  errors.ErrorCategory
		operation string
		want      string
	}{
		{
			name:      "component category and operation",
			component: "archive",
			category:  errors.CategoryStore,
			operation: "save-result",
			want:      "Archive Store Error Save Result",
		},
		{
			name:      "component and category",
			component: "dispatch",
			category:  errors.CategoryQueue,
			want:      "Dispatch Queue Error",
		},
		{
			name:      "unknown component omitted",
			component: errors.ComponentUnknown,
			category:  errors.CategoryTimeout,
			want:      "Timeout Error",
		},
		{
			name:      "fallback to error type",
			component: errors.ComponentUnknown,
			category:  errors.CategoryGeneric,
			want:      "*errors.errorString",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			builder := errors.Newf("some failure").
				Component(tt.component).
				Category(tt.category)
			if tt.operation != "" {
				builder = builder.Context("operation", tt.operation)
			}

			assert.Equal(t, tt.want, enhancedErrorTitle(builder.Build()))
		})
	}
}

func TestCategoryTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Circuit Breaker Error", categoryTitle("circuit-breaker"))
	assert.Equal(t, "System Resource Error", categoryTitle("system-resource"))
	assert.Equal(t, "Store Error", categoryTitle("store"))
	assert.Empty(t, categoryTitle(string(errors.CategoryGeneric)))
	assert.Empty(t, categoryTitle(""))
}

func TestReportLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category errors.ErrorCategory
		priority string
		want     sentry.Level
	}{
		{name: "store is error", category: errors.CategoryStore, want: sentry.LevelError},
		{name: "validation is error", category: errors.CategoryValidation, want: sentry.LevelError},
		{name: "network is warning", category: errors.CategoryNetwork, want: sentry.LevelWarning},
		{name: "circuit breaker is warning", category: errors.CategoryCircuitBreaker, want: sentry.LevelWarning},
		{name: "cancellation is info", category: errors.CategoryCancellation, want: sentry.LevelInfo},
		{name: "critical priority wins", category: errors.CategoryNetwork, priority: errors.PriorityCritical, want: sentry.LevelFatal},
		{name: "low priority wins", category: errors.CategoryStore, priority: errors.PriorityLow, want: sentry.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			builder := errors.Newf("boom").
				Component("dispatch").
				Category(tt.category)
			if tt.priority != "" {
				builder = builder.Priority(tt.priority)
			}

			assert.Equal(t, tt.want, reportLevel(builder.Build()))
		})
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		component string
		want      string
	}{
		{
			name:      "timeout with component",
			err:       fmt.Errorf("context deadline exceeded while posting"),
			component: "push",
			want:      "Push: Timeout",
		},
		{
			name: "connection refused without component",
			err:  fmt.Errorf("connection refused"),
			want: "Connection Refused",
		},
		{
			name:      "database locked",
			err:       fmt.Errorf("database is locked"),
			component: "archive",
			want:      "Archive: Database Locked",
		},
		{
			name:      "circuit open",
			err:       fmt.Errorf("circuit breaker is open"),
			component: "dispatch",
			want:      "Dispatch: Circuit Open",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, generateErrorTitle(tt.err, tt.component))
		})
	}

	t.Run("long unknown message truncated", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("x", 90)
		title := generateErrorTitle(fmt.Errorf("%s", long), "")
		assert.Len(t, title, 63)
		assert.True(t, strings.HasSuffix(title, "..."))
	})
}

func TestApplyPrivacyFiltersStripsIdentity(t *testing.T) {
	t.Parallel()

	event := sentry.NewEvent()
	event.User = sentry.User{ID: "user-1", Email: "ada@example.com"}
	event.ServerName = "dispatch-host-01"
	event.Contexts["device"] = sentry.Context{"name": "workstation"}
	event.Contexts["os"] = sentry.Context{"name": "linux"}
	event.Contexts["runtime"] = sentry.Context{"name": "go"}
	event.Contexts["application"] = sentry.Context{"name": "flashnotify"}
	event.Extra["component"] = "dispatch"
	event.Extra["error_type"] = "timeout"
	event.Extra["recipient"] = "ada@example.com"
	event.Tags["server_name"] = "dispatch-host-01"
	event.Tags["hostname"] = "dispatch-host-01"
	event.Tags["component"] = "dispatch"

	filtered := applyPrivacyFilters(event)

	assert.True(t, filtered.User.IsEmpty())
	assert.Empty(t, filtered.ServerName)
	assert.NotContains(t, filtered.Contexts, "device")
	assert.NotContains(t, filtered.Contexts, "os")
	assert.NotContains(t, filtered.Contexts, "runtime")
	assert.Contains(t, filtered.Contexts, "application")
	assert.Equal(t, map[string]any{"component": "dispatch", "error_type": "timeout"}, filtered.Extra)
	assert.Equal(t, map[string]string{"component": "dispatch"}, filtered.Tags)
}
