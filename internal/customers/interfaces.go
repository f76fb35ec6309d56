package customers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository is the customers persistence surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error)
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Search(ctx context.Context, term string, limit int) ([]models.Customer, error)
	TouchLastOrder(ctx context.Context, id uuid.UUID, at time.Time) error
}
