// model.go defines the archived rows written for completed dispatches
package archive

import (
	"strings"
	"time"

	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

// operationSend is the operation label recorded for transport invocations.
const operationSend = "send"

// DispatchRecord is the archived row for one completed dispatch task.
type DispatchRecord struct {
	ID            uint   `gorm:"primaryKey"`
	RequestID     string `gorm:"index:idx_dispatch_request;type:varchar(36)"`
	RecipientID   string `gorm:"index:idx_dispatch_recipient;type:varchar(64)"`
	RecipientName string `gorm:"type:varchar(128)"`
	Category      string `gorm:"index:idx_dispatch_category;type:varchar(32)"`
	Priority      string `gorm:"type:varchar(16)"`
	Title         string `gorm:"type:varchar(256)"`
	Body          string `gorm:"type:text"`
	Channels      string `gorm:"type:varchar(128)"` // comma-joined channels that accepted the message
	Status        string `gorm:"index:idx_dispatch_status;type:varchar(16)"`
	Attempts      int
	Duration      time.Duration
	CreatedAt     time.Time `gorm:"index"`
}

// PerformanceRecord is the archived latency of a channel's delivery
// outcome, one row per attempted channel that reached its transport.
type PerformanceRecord struct {
	ID         uint   `gorm:"primaryKey"`
	Channel    string `gorm:"index:idx_perf_channel;type:varchar(32)"`
	Operation  string `gorm:"type:varchar(32)"`
	DurationMs int64
	Success    bool
	RecordedAt time.Time `gorm:"index"`
}

// newDispatchRecord converts a completed dispatch result into its archive row.
func newDispatchRecord(result *notification.DispatchResult) *DispatchRecord {
	record := &DispatchRecord{
		RequestID: result.NotificationID,
		Category:  result.Category.String(),
		Priority:  result.Priority.String(),
		Title:     result.Title,
		Body:      result.Body,
		Channels:  strings.Join(result.SuccessfulChannels(), ","),
		Status:    string(result.Status),
		Attempts:  len(result.Attempts),
		Duration:  result.Duration(),
		CreatedAt: result.CompletedAt,
	}
	if result.Recipient != nil {
		record.RecipientID = result.Recipient.ID
		record.RecipientName = result.Recipient.Name
	}
	return record
}

// newPerformanceRecords converts the result's attempts into performance rows.
// Breaker rejections never invoked the transport and carry no latency, so
// they are skipped.
func newPerformanceRecords(result *notification.DispatchResult) []PerformanceRecord {
	records := make([]PerformanceRecord, 0, len(result.Attempts))
	for i := range result.Attempts {
		attempt := &result.Attempts[i]
		if attempt.CircuitOpen {
			continue
		}
		records = append(records, PerformanceRecord{
			Channel:    attempt.Channel,
			Operation:  operationSend,
			DurationMs: attempt.Duration.Milliseconds(),
			Success:    attempt.Succeeded,
			RecordedAt: attempt.At,
		})
	}
	return records
}
