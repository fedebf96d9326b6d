// Package errors - telemetry reporting hooks (optional)
package errors

import (
	"sync/atomic"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems.
// The telemetry package registers an implementation at startup; keeping this
// an interface avoids a circular dependency on the sentry integration.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

var (
	globalTelemetryReporter atomic.Pointer[TelemetryReporter]

	// hasActiveReporting gates the expensive component/category detection in
	// Build. It is true only while an enabled reporter is registered.
	hasActiveReporting atomic.Bool
)

// SetTelemetryReporter sets the global telemetry reporter
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		globalTelemetryReporter.Store(nil)
		hasActiveReporting.Store(false)
		return
	}
	globalTelemetryReporter.Store(&reporter)
	hasActiveReporting.Store(reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter, or nil
func GetTelemetryReporter() TelemetryReporter {
	ptr := globalTelemetryReporter.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// reportToTelemetry reports an error to the configured telemetry system
func reportToTelemetry(ee *EnhancedError) {
	reporter := GetTelemetryReporter()
	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

// PrivacyScrubber is a function type for privacy scrubbing
type PrivacyScrubber func(string) string

var globalPrivacyScrubber atomic.Pointer[PrivacyScrubber]

// SetPrivacyScrubber sets the global privacy scrubbing function.
// The telemetry package installs its scrubber here so error messages are
// sanitized before leaving the process.
func SetPrivacyScrubber(scrubber PrivacyScrubber) {
	if scrubber == nil {
		globalPrivacyScrubber.Store(nil)
		return
	}
	globalPrivacyScrubber.Store(&scrubber)
}

// ScrubMessage applies the registered privacy scrubber to a message.
// Returns the message unchanged when no scrubber is registered.
func ScrubMessage(message string) string {
	ptr := globalPrivacyScrubber.Load()
	if ptr == nil {
		return message
	}
	return (*ptr)(message)
}
