package notification

import (
	"regexp"
	"strings"

	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

// MaxRecipientNameLength bounds recipient names, matching the archive column width.
const MaxRecipientNameLength = 100

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// E.164 with optional leading plus, no leading zero
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// ValidEmail reports whether s is a well-formed email address.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// ValidPhone reports whether s is a well-formed international phone number.
func ValidPhone(s string) bool { return phonePattern.MatchString(s) }

// Recipient identifies who a notification is addressed to, along with the
// contact details the channel transports deliver through.
type Recipient struct {
	// ID is the caller's stable identifier for the recipient
	ID string `json:"id"`
	// Name is the recipient's display name
	Name string `json:"name"`
	// Email is the recipient's email address (optional)
	Email string `json:"email,omitempty"`
	// Phone is the recipient's phone number in international format (optional)
	Phone string `json:"phone,omitempty"`
	// PreferredChannel names the channel to use for non-critical
	// notifications (optional)
	PreferredChannel string `json:"preferred_channel,omitempty"`
}

// Validate checks the recipient's identity and contact details. A recipient
// must carry an ID, a name, and at least one contact route; email and phone
// are validated only when present.
func (r *Recipient) Validate() error {
	if r == nil {
		return validationError("recipient is required", nil)
	}
	switch {
	case strings.TrimSpace(r.ID) == "":
		return validationError("recipient id is required", r)
	case strings.TrimSpace(r.Name) == "":
		return validationError("recipient name is required", r)
	case len(r.Name) > MaxRecipientNameLength:
		return validationError("recipient name too long", r)
	case r.Email == "" && r.Phone == "":
		return validationError("recipient needs at least one contact method", r)
	case r.Email != "" && !ValidEmail(r.Email):
		return validationError("invalid email address", r)
	case r.Phone != "" && !ValidPhone(r.Phone):
		return validationError("invalid phone number", r)
	}
	return nil
}

// HasEmail reports whether the recipient carries an email address.
func (r *Recipient) HasEmail() bool { return r != nil && r.Email != "" }

// HasPhone reports whether the recipient carries a phone number.
func (r *Recipient) HasPhone() bool { return r != nil && r.Phone != "" }

func validationError(msg string, r *Recipient) error {
	b := errors.Newf("%s", msg).
		Component("notification").
		Category(errors.CategoryValidation)
	if r != nil {
		b = b.Context("recipient_id", r.ID)
	}
	return b.Build()
}
