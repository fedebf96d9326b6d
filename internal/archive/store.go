// Package archive persists completed dispatch results for later inspection.
//
// The store satisfies the dispatcher's Repository contract on top of GORM so
// the same models serve SQLite for single-host deployments and MySQL for
// shared ones. Each result archives as one DispatchRecord plus one
// PerformanceRecord per attempted channel, written in a single transaction.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/logging"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

// Interface defines the archive operations the rest of the system relies on.
type Interface interface {
	Open() error
	Close() error
	Save(ctx context.Context, result *notification.DispatchResult) error
	Recent(ctx context.Context, limit int) ([]DispatchRecord, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	ChannelAverages(ctx context.Context) ([]ChannelAverage, error)
}

// DataStore implements the archive operations on a GORM database handle.
// SQLiteStore and MySQLStore embed it and supply their own Open.
type DataStore struct {
	DB *gorm.DB
}

var (
	_ notification.Repository = (*DataStore)(nil)
	_ Interface               = (*SQLiteStore)(nil)
	_ Interface               = (*MySQLStore)(nil)
)

var (
	loggerOnce sync.Once
	logger     *slog.Logger
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		if l := logging.ForService("archive"); l != nil {
			logger = l
			return
		}
		logger = slog.Default().With("service", "archive")
	})
	return logger
}

// New returns the store matching the enabled output backend, or nil when
// result persistence is disabled entirely.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// Save archives one completed dispatch result. The dispatch row and its
// per-attempt performance rows commit together or not at all.
func (ds *DataStore) Save(ctx context.Context, result *notification.DispatchResult) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	if result == nil {
		return errors.Newf("dispatch result is required").
			Component("archive").
			Category(errors.CategoryValidation).
			Build()
	}

	record := newDispatchRecord(result)
	perf := newPerformanceRecords(result)

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("saving dispatch record: %w", err)
		}
		if len(perf) > 0 {
			if err := tx.Create(&perf).Error; err != nil {
				return fmt.Errorf("saving performance records: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return errors.New(err).
			Component("archive").
			Category(errors.CategoryStore).
			Context("notification_id", result.NotificationID).
			Context("operation", "save-result").
			Build()
	}

	getLogger().Debug("dispatch result archived",
		"notification_id", result.NotificationID,
		"status", string(result.Status),
		"attempts", len(result.Attempts))
	return nil
}

// Close releases the underlying connection pool. Closing a store that was
// never opened is a no-op.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return errors.New(err).
			Component("archive").
			Category(errors.CategoryStore).
			Context("operation", "close").
			Build()
	}
	if err := sqlDB.Close(); err != nil {
		return errors.New(err).
			Component("archive").
			Category(errors.CategoryStore).
			Context("operation", "close").
			Build()
	}
	getLogger().Debug("archive store closed")
	return nil
}

// performAutoMigration creates or updates the archive tables.
func performAutoMigration(db *gorm.DB, dbType string) error {
	start := time.Now()
	for _, model := range []any{&DispatchRecord{}, &PerformanceRecord{}} {
		if err := db.AutoMigrate(model); err != nil {
			return errors.New(err).
				Component("archive").
				Category(errors.CategoryStore).
				Context("db_type", dbType).
				Context("operation", "auto-migrate").
				Build()
		}
	}
	getLogger().Debug("archive migration completed",
		"db_type", dbType,
		"duration", time.Since(start))
	return nil
}

func errNotOpen() error {
	return errors.Newf("archive store is not open").
		Component("archive").
		Category(errors.CategoryStore).
		Build()
}
