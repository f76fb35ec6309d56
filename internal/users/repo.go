package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes the read side of accounts: contact info and preferences.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a user by their UUID. Missing rows yield gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves the user matching the provided email, case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Preferences reads the three communication flags for a user.
func (r *Repository) Preferences(ctx context.Context, id uuid.UUID) (Preferences, error) {
	var row preferencesRow
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("email_notifications", "newsletter_subscribed", "sms_notifications").
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Preferences{}, ErrNotFound
		}
		return Preferences{}, err
	}
	return row.toPreferences(), nil
}

// Contact returns the address to use for user-targeted mail.
func (r *Repository) Contact(ctx context.Context, id uuid.UUID) (Contact, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, err
	}
	return Contact{ID: user.ID, Email: user.Email, FullName: user.FullName}, nil
}
