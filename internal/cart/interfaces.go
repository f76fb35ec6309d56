package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ExistingProductIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error)
	ReplaceForUser(ctx context.Context, userID uuid.UUID, items []models.CartItem) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	DeleteItem(ctx context.Context, userID, productID uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	ListIdleUsers(ctx context.Context, idleSince time.Time) ([]uuid.UUID, error)
}
