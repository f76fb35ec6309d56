package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ventech/storefront-backend/pkg/enums"
	"github.com/ventech/storefront-backend/pkg/types"
)

// Customer is the deduplicated purchaser identity, distinct from User.
type Customer struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      *uuid.UUID           `gorm:"column:user_id;type:uuid;index" json:"user_id,omitempty"`
	Email       *string              `gorm:"column:email;uniqueIndex:customers_email_key" json:"email,omitempty"`
	Phone       *string              `gorm:"column:phone" json:"phone,omitempty"`
	FullName    *string              `gorm:"column:full_name" json:"full_name,omitempty"`
	Source      enums.CustomerSource `gorm:"column:source;not null" json:"source"`
	CreatedBy   *uuid.UUID           `gorm:"column:created_by;type:uuid" json:"created_by,omitempty"`
	Metadata    types.JSONMap        `gorm:"column:metadata;type:jsonb;serializer:json" json:"metadata,omitempty"`
	LastOrderAt *time.Time           `gorm:"column:last_order_at" json:"last_order_at,omitempty"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
