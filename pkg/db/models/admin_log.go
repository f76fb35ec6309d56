package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ventech/storefront-backend/pkg/types"
)

// AdminLog is an append-only audit record of a privileged action.
type AdminLog struct {
	ID         uuid.UUID     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Action     string        `gorm:"column:action;not null;index" json:"action"`
	UserID     *uuid.UUID    `gorm:"column:user_id;type:uuid" json:"user_id,omitempty"`
	Role       string        `gorm:"column:role;not null" json:"role"`
	StatusCode int           `gorm:"column:status_code;not null" json:"status_code"`
	DurationMS int64         `gorm:"column:duration_ms;not null" json:"duration_ms"`
	IPAddress  string        `gorm:"column:ip_address" json:"ip_address"`
	Metadata   types.JSONMap `gorm:"column:metadata;type:jsonb;serializer:json" json:"metadata,omitempty"`
	CreatedAt  time.Time     `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (a *AdminLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
