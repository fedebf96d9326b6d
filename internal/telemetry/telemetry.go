// Package telemetry reports errors and selected operational events to Sentry.
// Reporting is opt-in: nothing is initialized and every capture function is a
// no-op unless sentry.enabled is set in the configuration. Messages are
// scrubbed of emails, tokens, URLs and other identifying data before they
// leave the process, and a BeforeSend hook strips user identity, hostname and
// machine contexts from every event.
package telemetry

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/getsentry/sentry-go"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/logging"
	"github.com/Tresorkaseka/Flashnotify/internal/privacy"
)

// initialized is true once Init has configured the Sentry client. Capture
// functions return immediately while it is false.
var initialized atomic.Bool

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		if l := logging.ForService("telemetry"); l != nil {
			logger = l
			return
		}
		logger = slog.Default().With("service", "telemetry")
	})
	return logger
}

// Init configures Sentry from settings and hooks the error package so that
// enhanced errors built anywhere in the application are reported. When
// telemetry is disabled a disabled reporter is registered and Init returns
// nil without touching the Sentry SDK.
func Init(settings *conf.Settings) error {
	// The scrubber is registered unconditionally so error messages are
	// cleaned wherever they end up, not just in Sentry events.
	errors.SetPrivacyScrubber(privacy.ScrubMessage)

	if settings == nil || !settings.Sentry.Enabled {
		errors.SetTelemetryReporter(newReporter(false))
		getLogger().Info("error telemetry disabled (opt-in)")
		return nil
	}

	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry telemetry enabled without a dsn").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	environment := settings.Sentry.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.Sentry.DSN,
		SampleRate: 1.0,
		Debug:      false,

		// Identity never leaves the process: no stack traces with local
		// paths, no hostname, and BeforeSend strips what the SDK adds.
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",

		Release: fmt.Sprintf("flashnotify@%s", settings.Version),

		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "init-sentry").
			Build()
	}

	configureScope(settings)
	errors.SetTelemetryReporter(newReporter(true))
	initialized.Store(true)

	getLogger().Info("sentry telemetry initialized",
		"environment", environment,
		"version", settings.Version)

	return nil
}

// applyPrivacyFilters strips identifying data from an event before it is
// sent. User identity, server name, machine contexts, and all extra fields
// except the error classification are removed.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// configureScope tags every event with coarse platform facts. These are
// aggregate-safe: no serial numbers, hostnames, or install identifiers.
func configureScope(settings *conf.Settings) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)

		scope.SetContext("application", map[string]any{
			"name":    "flashnotify",
			"version": settings.Version,
		})
		scope.SetContext("platform", map[string]any{
			"os":           runtime.GOOS,
			"architecture": runtime.GOARCH,
			"num_cpu":      runtime.NumCPU(),
			"go_version":   runtime.Version(),
		})
	})
}

// CaptureError reports a plain error under the given component. The message
// is scrubbed before capture and the event is grouped by a parsed error
// title rather than the raw text.
func CaptureError(err error, component string) {
	if !initialized.Load() {
		return
	}

	scrubbed := privacy.ScrubMessage(err.Error())

	sentry.WithScope(func(scope *sentry.Scope) {
		errorTitle := generateErrorTitle(err, component)

		scope.SetTag("component", component)
		scope.SetTag("error_title", errorTitle)
		scope.SetContext("error", map[string]any{
			"type":             fmt.Sprintf("%T", err),
			"scrubbed_message": scrubbed,
		})
		scope.SetFingerprint([]string{errorTitle, component})

		event := sentry.NewEvent()
		event.Level = sentry.LevelError
		event.Message = scrubbed
		event.Exception = []sentry.Exception{{
			Type:  errorTitle,
			Value: scrubbed,
		}}

		sentry.CaptureEvent(event)
	})

	getLogger().Debug("error event sent",
		"component", component,
		"scrubbed_message", scrubbed)
}

// CaptureMessage reports an operational event, such as a circuit opening or
// a delivery giving up, at the given level.
func CaptureMessage(message string, level sentry.Level, component string) {
	if !initialized.Load() {
		return
	}

	scrubbed := privacy.ScrubMessage(message)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetLevel(level)
		sentry.CaptureMessage(scrubbed)
	})

	getLogger().Debug("message event sent",
		"component", component,
		"sentry_level", string(level))
}

// Flush blocks until buffered events are delivered or the timeout elapses.
// Call it on shutdown so terminal failures reported moments earlier are not
// lost with the process.
func Flush(timeout time.Duration) {
	if !initialized.Load() {
		return
	}
	sentry.Flush(timeout)
}

// generateErrorTitle derives a readable, groupable title from an error
// message. Known failure shapes get a stable name; everything else falls
// back to the truncated message.
func generateErrorTitle(err error, component string) string {
	errorType := parseErrorType(err.Error())

	if component != "" && component != errors.ComponentUnknown {
		return fmt.Sprintf("%s: %s", titleCase(component), errorType)
	}
	return errorType
}

func parseErrorType(errMsg string) string {
	switch {
	case strings.Contains(errMsg, "context deadline exceeded"):
		return "Timeout"
	case strings.Contains(errMsg, "connection refused"):
		return "Connection Refused"
	case strings.Contains(errMsg, "connection reset"):
		return "Connection Reset"
	case strings.Contains(errMsg, "circuit breaker is open"):
		return "Circuit Open"
	case strings.Contains(errMsg, "no such host"):
		return "DNS Lookup Failed"
	case strings.Contains(errMsg, "nil pointer dereference"):
		return "Nil Pointer Dereference"
	case strings.Contains(errMsg, "index out of range"):
		return "Index Out of Range"
	case strings.Contains(errMsg, "database is locked"):
		return "Database Locked"
	default:
		if len(errMsg) > 60 {
			return errMsg[:60] + "..."
		}
		return errMsg
	}
}

// sentryReporter forwards enhanced errors to Sentry. It implements
// errors.TelemetryReporter and is registered by Init; every error built with
// the errors package is then reported once, with its category, component,
// and context attached.
type sentryReporter struct {
	enabled bool
}

func newReporter(enabled bool) *sentryReporter {
	return &sentryReporter{enabled: enabled}
}

// IsEnabled reports whether events are forwarded to Sentry.
func (sr *sentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError sends an enhanced error to Sentry. Errors already reported are
// skipped, so a wrapped error travelling up the call stack is captured once.
func (sr *sentryReporter) ReportError(ee *errors.EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := fmt.Sprintf("[%s] %s", ee.GetCategory(), ee.Error())
	scrubbed := privacy.ScrubMessage(message)

	sentry.WithScope(func(scope *sentry.Scope) {
		errorTitle := enhancedErrorTitle(ee)
		level := reportLevel(ee)

		scope.SetTag("error_title", errorTitle)
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		scope.SetLevel(level)
		scope.SetFingerprint([]string{errorTitle, ee.GetComponent(), ee.GetCategory()})

		for key, value := range ee.GetContext() {
			if str, ok := value.(string); ok {
				value = privacy.ScrubMessage(str)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}

		event := sentry.NewEvent()
		event.Message = scrubbed
		event.Level = level
		event.Exception = []sentry.Exception{{
			Type:  errorTitle,
			Value: scrubbed,
		}}

		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// enhancedErrorTitle builds the Sentry issue title from component, category,
// and the operation context when present: "Archive Store Error Save Result".
func enhancedErrorTitle(ee *errors.EnhancedError) string {
	parts := make([]string, 0, 3)

	if component := ee.GetComponent(); component != "" && component != errors.ComponentUnknown {
		parts = append(parts, titleCase(component))
	}
	if category := categoryTitle(ee.GetCategory()); category != "" {
		parts = append(parts, category)
	}
	if operation, ok := ee.GetContext()["operation"].(string); ok && operation != "" {
		parts = append(parts, titleWords(operation))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%T", ee.Unwrap())
	}
	return strings.Join(parts, " ")
}

// categoryTitle renders a category slug as a title, "circuit-breaker"
// becoming "Circuit Breaker Error". The generic category yields nothing.
func categoryTitle(category string) string {
	if category == "" || category == string(errors.CategoryGeneric) {
		return ""
	}
	return titleWords(category) + " Error"
}

// titleWords title-cases each word, treating hyphens and underscores as
// separators.
func titleWords(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = titleCase(word)
	}
	return strings.Join(words, " ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// reportLevel maps an error to a Sentry level. An explicit priority set by
// the error builder wins; otherwise the category decides, with transient
// transport conditions reported as warnings rather than errors.
func reportLevel(ee *errors.EnhancedError) sentry.Level {
	switch ee.GetPriority() {
	case errors.PriorityCritical:
		return sentry.LevelFatal
	case errors.PriorityHigh:
		return sentry.LevelError
	case errors.PriorityMedium:
		return sentry.LevelWarning
	case errors.PriorityLow:
		return sentry.LevelInfo
	}

	switch errors.ErrorCategory(ee.GetCategory()) {
	case errors.CategoryValidation, errors.CategoryConfiguration, errors.CategoryDispatch,
		errors.CategoryStore, errors.CategoryTemplate, errors.CategorySystem:
		return sentry.LevelError
	case errors.CategoryTransport, errors.CategoryNetwork, errors.CategoryTimeout,
		errors.CategoryCircuitBreaker, errors.CategoryQueue, errors.CategoryRetry,
		errors.CategoryNotFound, errors.CategoryLimit, errors.CategoryFileIO:
		return sentry.LevelWarning
	case errors.CategoryCancellation:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}
