package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository is append-only: entries are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, entry *models.AdminLog) error
	List(ctx context.Context, filters ListFilters, offset, limit int) ([]models.AdminLog, int64, error)
}

type ListFilters struct {
	Action string
	UserID *uuid.UUID
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, entry *models.AdminLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, filters ListFilters, offset, limit int) ([]models.AdminLog, int64, error) {
	var total int64
	if err := r.filtered(ctx, filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.AdminLog
	err := r.filtered(ctx, filters).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *repository) filtered(ctx context.Context, filters ListFilters) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.AdminLog{})
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	return query
}
