package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ventech/storefront-backend/pkg/enums"
	"github.com/ventech/storefront-backend/pkg/types"
)

// Order is a placed purchase. Monetary columns are reconciled at creation and
// status/payment_status only move through the order state machine.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderNumber     string              `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key" json:"order_number"`
	UserID          *uuid.UUID          `gorm:"column:user_id;type:uuid;index" json:"user_id,omitempty"`
	CustomerID      *uuid.UUID          `gorm:"column:customer_id;type:uuid;index" json:"customer_id,omitempty"`
	CustomerName    string              `gorm:"column:customer_name;not null" json:"customer_name"`
	CustomerEmail   *string             `gorm:"column:customer_email" json:"customer_email,omitempty"`
	CustomerPhone   *string             `gorm:"column:customer_phone" json:"customer_phone,omitempty"`
	Status          enums.OrderStatus   `gorm:"column:status;not null;index" json:"status"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null" json:"payment_status"`
	PaymentMethod   *string             `gorm:"column:payment_method" json:"payment_method,omitempty"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	Discount        decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null" json:"discount"`
	Tax             decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null" json:"tax"`
	DeliveryFee     decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null" json:"delivery_fee"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	DeliveryAddress *types.Address      `gorm:"column:delivery_address;type:jsonb;serializer:json" json:"delivery_address,omitempty"`
	Notes           *string             `gorm:"column:notes" json:"notes,omitempty"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is an immutable price snapshot of one ordered product.
type OrderItem struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	ProductID        *uuid.UUID              `gorm:"column:product_id;type:uuid" json:"product_id,omitempty"`
	ProductName      string                  `gorm:"column:product_name;not null" json:"product_name"`
	UnitPrice        decimal.Decimal         `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	Quantity         int                     `gorm:"column:quantity;not null" json:"quantity"`
	SelectedVariants types.VariantSelections `gorm:"column:selected_variants;type:jsonb;serializer:json" json:"selected_variants,omitempty"`
	Subtotal         decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
