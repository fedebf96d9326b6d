package dispatch

import (
	"log/slog"
	"sync"

	"github.com/Tresorkaseka/Flashnotify/internal/logging"
)

var (
	serviceLogger     *slog.Logger
	serviceLoggerOnce sync.Once
)

// getLogger returns the dispatch service logger, falling back to the default
// slog logger when the logging subsystem has not been initialized (early
// startup, tests).
func getLogger() *slog.Logger {
	serviceLoggerOnce.Do(func() {
		if l := logging.ForService("dispatch"); l != nil {
			serviceLogger = l
			return
		}
		serviceLogger = slog.Default().With("service", "dispatch")
	})
	return serviceLogger
}
