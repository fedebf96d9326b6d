// queries.go implements the read side of the archive, feeding the channels
// command and the health endpoint.
package archive

import (
	"context"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

// defaultRecentLimit applies when Recent is called with a non-positive limit.
const defaultRecentLimit = 20

// ChannelAverage summarizes the archived performance rows for one channel.
type ChannelAverage struct {
	Channel       string  `json:"channel"`
	Attempts      int64   `json:"attempts"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// Recent returns the most recently completed dispatches, newest first.
func (ds *DataStore) Recent(ctx context.Context, limit int) ([]DispatchRecord, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	var records []DispatchRecord
	err := ds.DB.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.New(err).
			Component("archive").
			Category(errors.CategoryStore).
			Context("operation", "recent").
			Build()
	}
	return records, nil
}

// CountByStatus returns how many archived dispatches ended in each terminal
// status.
func (ds *DataStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}

	var rows []struct {
		Status string
		Count  int64
	}
	err := ds.DB.WithContext(ctx).
		Model(&DispatchRecord{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.New(err).
			Component("archive").
			Category(errors.CategoryStore).
			Context("operation", "count-by-status").
			Build()
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ChannelAverages aggregates attempt count, success rate, and mean latency
// per channel over the archived performance rows.
func (ds *DataStore) ChannelAverages(ctx context.Context) ([]ChannelAverage, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}

	var averages []ChannelAverage
	err := ds.DB.WithContext(ctx).
		Model(&PerformanceRecord{}).
		Select("channel, " +
			"COUNT(*) AS attempts, " +
			"AVG(CASE WHEN success THEN 1.0 ELSE 0.0 END) AS success_rate, " +
			"AVG(duration_ms) AS avg_duration_ms").
		Group("channel").
		Order("channel").
		Scan(&averages).Error
	if err != nil {
		return nil, errors.New(err).
			Component("archive").
			Category(errors.CategoryStore).
			Context("operation", "channel-averages").
			Build()
	}
	return averages, nil
}
