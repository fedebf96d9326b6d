// Package notification defines the domain model for the Flashnotify
// dispatch engine: requests, recipients, categories, delivery outcomes,
// and the transport and repository contracts that channel providers and
// storage backends implement.
package notification

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

// Category classifies what kind of event a notification reports.
// The category drives priority classification and therefore channel
// selection.
type Category string

const (
	// CategoryWeather indicates a weather alert (storms, closures)
	CategoryWeather Category = "weather"
	// CategorySecurity indicates a security incident on campus
	CategorySecurity Category = "security"
	// CategoryHealth indicates a health emergency
	CategoryHealth Category = "health"
	// CategoryInfrastructure indicates an infrastructure outage (power, water, network)
	CategoryInfrastructure Category = "infrastructure"
	// CategoryAcademic indicates routine academic information
	CategoryAcademic Category = "academic"
)

// knownCategories is the closed set accepted by ParseCategory.
var knownCategories = map[Category]struct{}{
	CategoryWeather:        {},
	CategorySecurity:       {},
	CategoryHealth:         {},
	CategoryInfrastructure: {},
	CategoryAcademic:       {},
}

// Categories returns all known categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryWeather,
		CategorySecurity,
		CategoryHealth,
		CategoryInfrastructure,
		CategoryAcademic,
	}
}

// ParseCategory converts a string into a Category, case-insensitively.
// Unknown values return an error wrapping ErrUnknownCategory.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownCategories[c]; !ok {
		return "", errors.Newf("unknown notification category %q: %w", s, ErrUnknownCategory).
			Component("notification").
			Category(errors.CategoryValidation).
			Context("category", s).
			Build()
	}
	return c, nil
}

// String returns the category as its wire representation.
func (c Category) String() string { return string(c) }

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}

// Priority represents the urgency tier derived from a request's category.
type Priority string

const (
	// PriorityCritical indicates urgent attention required, broadcast to all channels
	PriorityCritical Priority = "critical"
	// PriorityHigh indicates important but not urgent
	PriorityHigh Priority = "high"
	// PriorityMedium indicates normal priority
	PriorityMedium Priority = "medium"
	// PriorityLow indicates low priority, informational
	PriorityLow Priority = "low"
)

// Rank returns the numeric urgency of the priority, higher is more urgent.
// Unknown priorities rank below PriorityLow.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// String returns the priority as its wire representation.
func (p Priority) String() string { return string(p) }

// Sentinel errors for notification domain operations.
var (
	// ErrUnknownCategory is returned when a request names a category outside
	// the known set. Callers must treat it as a non-retriable input error.
	ErrUnknownCategory = errors.Newf("unknown category").
				Component("notification").
				Category(errors.CategoryValidation).
				Build()
	// ErrUnknownChannel is returned when channel selection resolves to a
	// name that no transport registered under.
	ErrUnknownChannel = errors.Newf("unknown channel").
				Component("notification").
				Category(errors.CategoryNotFound).
				Build()
)

// MaxTitleLength bounds notification titles, matching the archive column width.
const MaxTitleLength = 200

// Notification is a single delivery request. Values are immutable once
// submitted to the dispatcher; the With* helpers are for construction only.
type Notification struct {
	// ID is the unique identifier for the request
	ID string `json:"id"`
	// Recipient identifies who receives the notification
	Recipient *Recipient `json:"recipient"`
	// Category classifies the event and drives priority
	Category Category `json:"category"`
	// Title is a short summary, bounded by MaxTitleLength
	Title string `json:"title"`
	// Body provides detailed information, delivered verbatim
	Body string `json:"body"`
	// Channel optionally overrides channel selection for non-critical requests
	Channel string `json:"channel,omitempty"`
	// Metadata contains additional context-specific data
	Metadata map[string]any `json:"metadata,omitempty"`
	// CreatedAt indicates when the request was created
	CreatedAt time.Time `json:"created_at"`
	// Deadline bounds how long delivery may be retried (optional)
	Deadline *time.Time `json:"deadline,omitempty"`
}

// New creates a notification request with a unique ID and timestamp.
func New(recipient *Recipient, category Category, title, body string) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Category:  category,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
}

// WithChannel sets an explicit channel override and returns the notification for chaining.
func (n *Notification) WithChannel(channel string) *Notification {
	n.Channel = channel
	return n
}

// WithMetadata sets a metadata key-value pair and returns the notification for chaining.
func (n *Notification) WithMetadata(key string, value any) *Notification {
	if n.Metadata == nil {
		n.Metadata = make(map[string]any)
	}
	n.Metadata[key] = value
	return n
}

// WithDeadline sets an absolute delivery deadline and returns the notification for chaining.
func (n *Notification) WithDeadline(t time.Time) *Notification {
	n.Deadline = &t
	return n
}

// WithTTL sets the deadline relative to the creation time and returns the
// notification for chaining.
func (n *Notification) WithTTL(d time.Duration) *Notification {
	t := n.CreatedAt.Add(d)
	n.Deadline = &t
	return n
}

// Expired reports whether the request's deadline has passed at the given
// instant. Requests without a deadline never expire.
func (n *Notification) Expired(now time.Time) bool {
	return n.Deadline != nil && now.After(*n.Deadline)
}

// Transport is the delivery capability behind one channel. Implementations
// must be safe for concurrent use; Send returns nil on successful delivery
// and an error otherwise. Errors that may succeed on a later attempt should
// be wrapped with RetryableError so the dispatcher can distinguish transient
// outages from permanent failures.
type Transport interface {
	// Name returns the channel identifier the transport serves.
	Name() string
	// Send delivers one message to the recipient. The context carries the
	// per-call timeout; implementations must honor cancellation.
	Send(ctx context.Context, recipient *Recipient, title, body string) error
}

// CapabilityChecker is an optional Transport extension. Transports that
// require specific contact details (a phone number for SMS, an address for
// email) report per-recipient deliverability here; transports without the
// interface are assumed capable for every recipient.
type CapabilityChecker interface {
	CanDeliver(recipient *Recipient) bool
}

// ConfigValidator is an optional Transport extension checked once at
// registration time.
type ConfigValidator interface {
	ValidateConfig() error
}

// DeliveryError marks a transport failure as retryable or permanent.
// The dispatcher re-enqueues a task only when at least one of its failures
// is retryable.
type DeliveryError struct {
	Err       error
	Retryable bool
}

func (e *DeliveryError) Error() string { return e.Err.Error() }
func (e *DeliveryError) Unwrap() error { return e.Err }

// RetryableError wraps err as a transient failure worth retrying.
func RetryableError(err error) error {
	if err == nil {
		return nil
	}
	return &DeliveryError{Err: err, Retryable: true}
}

// PermanentError wraps err as a failure that will not succeed on retry.
func PermanentError(err error) error {
	if err == nil {
		return nil
	}
	return &DeliveryError{Err: err, Retryable: false}
}

// IsRetryable reports whether err is marked as a transient delivery failure.
// Unmarked errors are treated as permanent.
func IsRetryable(err error) bool {
	var derr *DeliveryError
	if errors.As(err, &derr) {
		return derr.Retryable
	}
	return false
}

// DeliveryAttempt records the outcome of one transport invocation.
// Attempts are immutable once appended to a DispatchResult.
type DeliveryAttempt struct {
	// Channel is the name the transport registered under
	Channel string `json:"channel"`
	// Round is the task execution round the attempt belongs to, starting at 1
	Round int `json:"round"`
	// Succeeded is true when the transport returned without error
	Succeeded bool `json:"succeeded"`
	// Error holds the transport error verbatim, empty on success
	Error string `json:"error,omitempty"`
	// CircuitOpen is true when the breaker rejected the call without
	// invoking the transport
	CircuitOpen bool `json:"circuit_open,omitempty"`
	// Duration is how long the attempt took
	Duration time.Duration `json:"duration"`
	// At indicates when the attempt started
	At time.Time `json:"at"`
}

// ResultStatus is the terminal state of a dispatch task.
type ResultStatus string

const (
	// StatusSent indicates delivery succeeded per the configured success policy
	StatusSent ResultStatus = "sent"
	// StatusFailed indicates delivery did not succeed on any required channel
	StatusFailed ResultStatus = "failed"
	// StatusExpired indicates the deadline passed before delivery succeeded
	StatusExpired ResultStatus = "expired"
	// StatusCanceled indicates the dispatcher shut down before the task completed
	StatusCanceled ResultStatus = "canceled"
)

// DispatchResult aggregates every delivery attempt made for one request.
// The dispatcher creates exactly one result per accepted request and keeps
// no reference after handing it to the Repository.
type DispatchResult struct {
	// ID is the unique identifier of the result
	ID string `json:"id"`
	// NotificationID links back to the originating request
	NotificationID string `json:"notification_id"`
	// Recipient identifies who the request addressed
	Recipient *Recipient `json:"recipient"`
	// Category is the request's category
	Category Category `json:"category"`
	// Priority is the urgency derived from the category
	Priority Priority `json:"priority"`
	// Status is the terminal state of the task
	Status ResultStatus `json:"status"`
	// Title is the delivered title, category tag included
	Title string `json:"title"`
	// Body is the delivered body, verbatim from the request
	Body string `json:"body"`
	// Attempts lists the latest outcome per attempted channel, one entry
	// per channel; each entry's Round shows when its outcome landed
	Attempts []DeliveryAttempt `json:"attempts"`
	// Rounds is how many execution rounds the task consumed
	Rounds int `json:"rounds"`
	// Error describes why the task terminalized without a successful
	// attempt, empty otherwise
	Error string `json:"error,omitempty"`
	// EnqueuedAt indicates when the task entered the queue
	EnqueuedAt time.Time `json:"enqueued_at"`
	// CompletedAt indicates when the task reached a terminal state
	CompletedAt time.Time `json:"completed_at"`
}

// Succeeded reports whether the result reached StatusSent.
func (r *DispatchResult) Succeeded() bool { return r.Status == StatusSent }

// Duration returns the wall time from enqueue to completion.
func (r *DispatchResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.EnqueuedAt)
}

// SuccessfulChannels returns the channels that delivered, in attempt order.
func (r *DispatchResult) SuccessfulChannels() []string {
	var out []string
	for i := range r.Attempts {
		if r.Attempts[i].Succeeded {
			out = append(out, r.Attempts[i].Channel)
		}
	}
	return out
}

// FailedChannels returns the channels that never delivered, in attempt order.
func (r *DispatchResult) FailedChannels() []string {
	var out []string
	for i := range r.Attempts {
		if !r.Attempts[i].Succeeded {
			out = append(out, r.Attempts[i].Channel)
		}
	}
	return out
}
