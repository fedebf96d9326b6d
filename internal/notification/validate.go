package notification

import (
	"strings"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

// Validate checks a request before it enters the dispatch queue. Validation
// failures are non-retriable input errors surfaced to the caller immediately,
// they never enter the retry path.
func (n *Notification) Validate() error {
	if n == nil {
		return requestError("notification is required")
	}
	if strings.TrimSpace(n.Title) == "" {
		return requestError("title is required")
	}
	if len(n.Title) > MaxTitleLength {
		return errors.Newf("title exceeds %d characters", MaxTitleLength).
			Component("notification").
			Category(errors.CategoryValidation).
			Context("title_length", len(n.Title)).
			Build()
	}
	if strings.TrimSpace(n.Body) == "" {
		return requestError("body is required")
	}
	if !n.Category.Valid() {
		return errors.Newf("unknown notification category %q: %w", string(n.Category), ErrUnknownCategory).
			Component("notification").
			Category(errors.CategoryValidation).
			Context("category", string(n.Category)).
			Build()
	}
	return n.Recipient.Validate()
}

func requestError(msg string) error {
	return errors.Newf("%s", msg).
		Component("notification").
		Category(errors.CategoryValidation).
		Build()
}
