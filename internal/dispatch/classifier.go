// Package dispatch implements the notification dispatch engine: priority
// classification, channel registration and selection, per-channel circuit
// breaking, the bounded priority queue with its worker pool, and delivery
// performance accounting.
package dispatch

import (
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
	"github.com/Tresorkaseka/Flashnotify/internal/notification"
)

// Classifier maps a request category to an urgency level. The mapping is
// data, not logic: construct with NewClassifier for the standard table, or
// supply overrides to extend it without touching dispatch code.
type Classifier struct {
	table map[notification.Category]notification.Priority
}

// NewClassifier returns a classifier with the standard category table:
// security and health are critical, weather is high, infrastructure is
// medium, everything else is low.
func NewClassifier() *Classifier {
	return &Classifier{table: map[notification.Category]notification.Priority{
		notification.CategorySecurity:       notification.PriorityCritical,
		notification.CategoryHealth:         notification.PriorityCritical,
		notification.CategoryWeather:        notification.PriorityHigh,
		notification.CategoryInfrastructure: notification.PriorityMedium,
		notification.CategoryAcademic:       notification.PriorityLow,
	}}
}

// NewClassifierWithOverrides returns a classifier with the standard table
// plus the given category-to-priority overrides applied on top.
func NewClassifierWithOverrides(overrides map[notification.Category]notification.Priority) *Classifier {
	c := NewClassifier()
	for cat, prio := range overrides {
		c.table[cat] = prio
	}
	return c
}

// Classify returns the urgency for a category. It is deterministic and
// side-effect-free; known categories missing from the table default to low.
// Unknown categories return ErrUnknownCategory, a non-retriable input error.
func (c *Classifier) Classify(cat notification.Category) (notification.Priority, error) {
	if !cat.Valid() {
		return "", errors.Newf("cannot classify unknown category %q: %w", string(cat), notification.ErrUnknownCategory).
			Component("dispatch").
			Category(errors.CategoryValidation).
			Context("category", string(cat)).
			Build()
	}
	if prio, ok := c.table[cat]; ok {
		return prio, nil
	}
	return notification.PriorityLow, nil
}
