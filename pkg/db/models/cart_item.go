package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ventech/storefront-backend/pkg/types"
)

// CartItem is one product line in a user's cart; (user_id, product_id) is unique.
type CartItem struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null;uniqueIndex:cart_items_user_product_key" json:"user_id"`
	ProductID        uuid.UUID               `gorm:"column:product_id;type:uuid;not null;uniqueIndex:cart_items_user_product_key" json:"product_id"`
	Quantity         int                     `gorm:"column:quantity;not null" json:"quantity"`
	SelectedVariants types.VariantSelections `gorm:"column:selected_variants;type:jsonb;serializer:json" json:"selected_variants,omitempty"`
	Product          *Product                `gorm:"foreignKey:ProductID;references:ID" json:"product,omitempty"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
