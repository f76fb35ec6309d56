package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	"github.com/ventech/storefront-backend/pkg/types"
)

// Actor is the authenticated caller of an order operation. A zero Actor is a guest.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// CanAccess reports whether the actor is staff or owns the order.
func (a Actor) CanAccess(order *models.Order) bool {
	if a.Role.IsStaff() {
		return true
	}
	return a.UserID != uuid.Nil && order.UserID != nil && *order.UserID == a.UserID
}

// CreateInput is a checkout submission. Client totals are never accepted;
// only the adjustments below are taken as given.
type CreateInput struct {
	UserID          *uuid.UUID
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Items           []ItemInput
	Discount        decimal.Decimal
	Tax             decimal.Decimal
	DeliveryFee     decimal.Decimal
	DeliveryAddress *types.Address
	PaymentMethod   string
	Notes           string
}

// ItemInput is one ordered line. When ProductID names a catalog product, the
// catalog name and price are snapshotted instead of the submitted ones.
type ItemInput struct {
	ProductID        *uuid.UUID
	ProductName      string
	UnitPrice        decimal.Decimal
	Quantity         int
	SelectedVariants types.VariantSelections
}

// ListParams configures the admin order listing.
type ListParams struct {
	Page          int
	Limit         int
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	UserID        *uuid.UUID
	CustomerID    *uuid.UUID
}

// ListResult is one page of orders.
type ListResult struct {
	Orders     []models.Order   `json:"orders"`
	Pagination types.Pagination `json:"pagination"`
}
