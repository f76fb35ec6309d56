package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/db/models"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the cart reconciliation operations.
type Service interface {
	Replace(ctx context.Context, userID uuid.UUID, items []ItemInput) ([]models.CartItem, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// Replace swaps the user's whole cart for the submitted list in one transaction.
// Concurrent replaces for the same user resolve last-writer-wins.
func (s *service) Replace(ctx context.Context, userID uuid.UUID, items []ItemInput) ([]models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rows, err := collapse(items)
	if err != nil {
		return nil, err
	}

	var saved []models.CartItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := requireProducts(ctx, repo, items); err != nil {
			return err
		}
		if err := repo.ReplaceForUser(ctx, userID, rows); err != nil {
			return err
		}
		if len(rows) == 0 {
			saved = []models.CartItem{}
			return nil
		}
		var listErr error
		saved, listErr = repo.ListByUser(ctx, userID)
		return listErr
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "cart.replace.failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "replace cart")
	}
	return saved, nil
}

// requireProducts rejects the first submitted line whose product does not exist.
func requireProducts(ctx context.Context, repo Repository, items []ItemInput) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	found, err := repo.ExistingProductIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i, item := range items {
		if _, ok := found[item.ProductID]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "product not found").
				WithDetails(map[string]any{"index": i, "product_id": item.ProductID.String()})
		}
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list cart")
	}
	return rows, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.repo.DeleteItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "remove cart item")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "clear cart")
	}
	return nil
}

// collapse keeps the last submitted line per product in first-seen order.
func collapse(items []ItemInput) ([]models.CartItem, error) {
	index := make(map[uuid.UUID]int, len(items))
	rows := make([]models.CartItem, 0, len(items))
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
				WithDetails(map[string]any{"index": i})
		}
		row := models.CartItem{
			ProductID:        item.ProductID,
			Quantity:         item.Quantity.Int(),
			SelectedVariants: item.SelectedVariants,
		}
		if pos, ok := index[item.ProductID]; ok {
			rows[pos] = row
			continue
		}
		index[item.ProductID] = len(rows)
		rows = append(rows, row)
	}
	return rows, nil
}
