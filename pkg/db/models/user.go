package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an authenticated account. The API only reads contact details and
// communication preferences from it; account management lives elsewhere.
type User struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email                string    `gorm:"column:email;not null;uniqueIndex"`
	FullName             string    `gorm:"column:full_name"`
	Phone                *string   `gorm:"column:phone"`
	Role                 string    `gorm:"column:role;not null"`
	EmailNotifications   bool      `gorm:"column:email_notifications;not null"`
	NewsletterSubscribed bool      `gorm:"column:newsletter_subscribed;not null"`
	SMSNotifications     bool      `gorm:"column:sms_notifications;not null"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
