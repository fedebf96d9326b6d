package archive

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

// slowQueryThreshold is the duration after which a query is logged as slow.
// One second leaves headroom for migration batches without flagging routine
// archive inserts.
const slowQueryThreshold = time.Second

// gormLogger routes GORM's internal logging through the package logger.
type gormLogger struct {
	slowThreshold time.Duration
	level         gormlogger.LogLevel
}

func newGormLogger() gormlogger.Interface {
	return &gormLogger{
		slowThreshold: slowQueryThreshold,
		level:         gormlogger.Warn,
	}
}

// LogMode implements gormlogger.Interface.
func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface.
func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		getLogger().InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Warn implements gormlogger.Interface.
func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		getLogger().WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Error implements gormlogger.Interface.
func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		getLogger().ErrorContext(ctx, "gorm error", "msg", fmt.Sprintf(msg, data...))
	}
}

// Trace implements gormlogger.Interface. Failed queries log as errors, slow
// ones as warnings, the rest at debug when the level allows it.
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		getLogger().ErrorContext(ctx, "query failed",
			"sql", sql,
			"duration", elapsed,
			"rows_affected", rows,
			"error", err)
	case l.slowThreshold != 0 && elapsed > l.slowThreshold:
		getLogger().WarnContext(ctx, "slow query",
			"sql", sql,
			"duration", elapsed,
			"rows_affected", rows,
			"threshold", l.slowThreshold)
	case l.level >= gormlogger.Info:
		getLogger().DebugContext(ctx, "query executed",
			"sql", sql,
			"duration", elapsed,
			"rows_affected", rows)
	}
}
