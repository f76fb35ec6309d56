package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/db/models"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

const (
	DefaultInboxLimit = 8
	MaxInboxLimit     = 50
)

// Inbox defines in-app notification operations for the admin dashboard.
type Inbox interface {
	Publish(ctx context.Context, tx *gorm.DB, notification *models.Notification) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, notificationID uuid.UUID) error
}

type inbox struct {
	repo Repository
}

// ListParams configures the inbox listing.
type ListParams struct {
	Limit      int
	UnreadOnly bool
}

// ListResult wraps the returned notifications with the global unread count.
type ListResult struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

// NewInbox wires notifications dependencies.
func NewInbox(repo Repository) (Inbox, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &inbox{repo: repo}, nil
}

func (s *inbox) Publish(ctx context.Context, tx *gorm.DB, notification *models.Notification) error {
	if notification == nil || !notification.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification type required")
	}
	if err := s.repo.WithTx(tx).Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create notification")
	}
	return nil
}

func (s *inbox) List(ctx context.Context, params ListParams) (*ListResult, error) {
	rows, err := s.repo.List(ctx, listNotificationsParams{
		Limit:      pagination.Clamp(params.Limit, DefaultInboxLimit, MaxInboxLimit),
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count unread notifications")
	}
	if rows == nil {
		rows = []models.Notification{}
	}
	return &ListResult{Notifications: rows, UnreadCount: unread}, nil
}

func (s *inbox) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *inbox) MarkAllRead(ctx context.Context) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "mark notifications read")
	}
	return count, nil
}

func (s *inbox) Delete(ctx context.Context, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	if err := s.repo.Delete(ctx, notificationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete notification")
	}
	return nil
}
