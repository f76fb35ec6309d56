package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, offset, limit int) ([]models.Order, int64, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, update StatusUpdate) (bool, error)
	ProductsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// StatusUpdate is the column set written by one state transition.
type StatusUpdate struct {
	Status        enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	UserID        *uuid.UUID
	CustomerID    *uuid.UUID
}
