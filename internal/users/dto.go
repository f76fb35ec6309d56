package users

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// Preferences are a user's opt-in flags for outbound communication.
type Preferences struct {
	EmailNotifications   bool `json:"email_notifications"`
	NewsletterSubscribed bool `json:"newsletter_subscribed"`
	SMSNotifications     bool `json:"sms_notifications"`
}

// DefaultPreferences is applied to guests and whenever the lookup fails.
func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications:   true,
		NewsletterSubscribed: false,
		SMSNotifications:     true,
	}
}

// Contact is the mailing identity of an account.
type Contact struct {
	ID       uuid.UUID
	Email    string
	FullName string
}

type preferencesRow struct {
	EmailNotifications   *bool
	NewsletterSubscribed *bool
	SMSNotifications     *bool
}

// toPreferences fills NULL columns from the defaults.
func (r preferencesRow) toPreferences() Preferences {
	prefs := DefaultPreferences()
	if r.EmailNotifications != nil {
		prefs.EmailNotifications = *r.EmailNotifications
	}
	if r.NewsletterSubscribed != nil {
		prefs.NewsletterSubscribed = *r.NewsletterSubscribed
	}
	if r.SMSNotifications != nil {
		prefs.SMSNotifications = *r.SMSNotifications
	}
	return prefs
}
