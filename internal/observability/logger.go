package observability

import (
	"log/slog"
	"sync"

	"github.com/Tresorkaseka/Flashnotify/internal/logging"
)

var (
	loggerOnce sync.Once
	logger     *slog.Logger
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		if l := logging.ForService("observability"); l != nil {
			logger = l
			return
		}
		logger = slog.Default().With("service", "observability")
	})
	return logger
}
