package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ventech/storefront-backend/pkg/db/dbtest"
	"github.com/ventech/storefront-backend/pkg/db/models"
)

func TestRepository_AddListRemove(t *testing.T) {
	conn := dbtest.Open(t, &models.Product{}, &models.WishlistItem{})
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := uuid.New()

	active := models.Product{Name: "Smart Watch", Price: decimal.RequireFromString("450"), IsActive: true}
	retired := models.Product{Name: "Old Phone", Price: decimal.RequireFromString("100")}
	require.NoError(t, conn.Create(&active).Error)
	require.NoError(t, conn.Create(&retired).Error)
	require.NoError(t, conn.Model(&retired).Update("is_active", false).Error)

	require.NoError(t, repo.AddItem(ctx, userID, active.ID))
	require.NoError(t, repo.AddItem(ctx, userID, active.ID))
	require.NoError(t, repo.AddItem(ctx, userID, retired.ID))
	assert.Error(t, repo.AddItem(ctx, uuid.Nil, active.ID))

	products, err := repo.ListProducts(ctx, userID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Smart Watch", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("450")))

	require.NoError(t, repo.RemoveItem(ctx, userID, active.ID))
	products, err = repo.ListProducts(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, products)
}
