package customers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ventech/storefront-backend/pkg/db/dbtest"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, opts Options) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t, &models.Customer{})
	svc, err := NewService(NewRepository(conn), logger.Nop(), opts)
	require.NoError(t, err)
	return svc, conn
}

func sequentialAlias() AliasFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%08x", n)
	}
}

func TestUpsert_SameEmailResolvesToOneCustomer(t *testing.T) {
	svc, conn := newTestService(t, Options{})
	ctx := context.Background()

	first, err := svc.Upsert(ctx, nil, UpsertInput{Email: "Kofi@Example.com ", FullName: "Kofi"})
	require.NoError(t, err)
	second, err := svc.Upsert(ctx, nil, UpsertInput{Email: "kofi@example.com", Phone: "0241234567"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, enums.CustomerSourceManual, first.Source)

	var stored models.Customer
	require.NoError(t, conn.First(&stored, "id = ?", first.ID).Error)
	require.NotNil(t, stored.Phone)
	assert.Equal(t, "0241234567", *stored.Phone)
	assert.Equal(t, "Kofi", *stored.FullName)

	var count int64
	require.NoError(t, conn.Model(&models.Customer{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsert_BackfillsUserOnEmailMatch(t *testing.T) {
	svc, conn := newTestService(t, Options{})
	ctx := context.Background()

	guest, err := svc.Upsert(ctx, nil, UpsertInput{Email: "ama@example.com"})
	require.NoError(t, err)
	assert.Nil(t, guest.UserID)

	userID := uuid.New()
	linked, err := svc.Upsert(ctx, nil, UpsertInput{UserID: &userID, Email: "ama@example.com", FullName: "Ama Owusu"})
	require.NoError(t, err)
	assert.Equal(t, guest.ID, linked.ID)

	var stored models.Customer
	require.NoError(t, conn.First(&stored, "id = ?", guest.ID).Error)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, userID, *stored.UserID)
	assert.Equal(t, "Ama Owusu", *stored.FullName)
}

func TestUpsert_UserMatchKeepsExistingFields(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	userID := uuid.New()

	created, err := svc.Upsert(ctx, nil, UpsertInput{UserID: &userID, Email: "yaw@example.com", FullName: "Yaw"})
	require.NoError(t, err)
	assert.Equal(t, enums.CustomerSourceRegistered, created.Source)

	again, err := svc.Upsert(ctx, nil, UpsertInput{UserID: &userID, Email: "other@example.com", FullName: "Someone Else", Phone: "0200000000"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "yaw@example.com", *again.Email)
	assert.Equal(t, "Yaw", *again.FullName)
	assert.Equal(t, "0200000000", *again.Phone)
}

func TestUpsert_PhoneOnlyAndValidation(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	customer, err := svc.Upsert(ctx, nil, UpsertInput{Phone: "0551112222"})
	require.NoError(t, err)
	assert.Nil(t, customer.Email)

	_, err = svc.Upsert(ctx, nil, UpsertInput{FullName: "No Contact"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpsert_InsideTransactionRollsBack(t *testing.T) {
	svc, conn := newTestService(t, Options{})
	ctx := context.Background()

	boom := errors.New("boom")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.Upsert(ctx, tx, UpsertInput{Email: "rollback@example.com"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.Customer{}).Count(&count).Error)
	assert.Zero(t, count)
}

type racingRepo struct {
	Repository
	winner *models.Customer
}

func (r *racingRepo) WithTx(*gorm.DB) Repository { return r }

func (r *racingRepo) Create(ctx context.Context, customer *models.Customer) error {
	if err := r.Repository.Create(ctx, r.winner); err != nil {
		return err
	}
	return r.Repository.Create(ctx, customer)
}

func TestUpsert_RecoversFromConcurrentInsert(t *testing.T) {
	conn := dbtest.Open(t, &models.Customer{})
	email := "race@example.com"
	repo := &racingRepo{
		Repository: NewRepository(conn),
		winner:     &models.Customer{Email: &email, Source: enums.CustomerSourceManual},
	}
	svc, err := NewService(repo, logger.Nop(), Options{})
	require.NoError(t, err)

	got, err := svc.Upsert(context.Background(), nil, UpsertInput{Email: email})
	require.NoError(t, err)
	assert.Equal(t, repo.winner.ID, got.ID)
}

func TestCreateGuest_SynthesizesUniqueAliases(t *testing.T) {
	svc, _ := newTestService(t, Options{FallbackEmail: "orders@ventech.test", Alias: sequentialAlias()})
	ctx := context.Background()

	first, created, err := svc.CreateGuest(ctx, CreateGuestInput{FullName: "Walk In", Phone: "0241112222"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "orders+00000001@ventech.test", *first.Email)
	assert.Equal(t, "orders@ventech.test", first.Metadata["contact_email"])
	assert.Equal(t, "orders+00000001@ventech.test", first.Metadata["generated_alias"])

	second, created, err := svc.CreateGuest(ctx, CreateGuestInput{FullName: "Walk In", Phone: "0241112222"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, *first.Email, *second.Email)
}

func TestCreateGuest_ReturnsExistingByEmail(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	first, created, err := svc.CreateGuest(ctx, CreateGuestInput{FullName: "Esi", Phone: "0209998888", Email: "esi@example.com"})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.CreateGuest(ctx, CreateGuestInput{FullName: "Esi B", Phone: "0209998888", Email: " ESI@example.com"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
}

func TestCreateGuest_Validation(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, _, err := svc.CreateGuest(ctx, CreateGuestInput{Phone: "0241112222"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, _, err = svc.CreateGuest(ctx, CreateGuestInput{FullName: "Short", Phone: " 123 "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGuestAlias(t *testing.T) {
	primary, alias := guestAlias("Sales.Team@Shop.com", "abcd1234")
	assert.Equal(t, "Sales.Team@Shop.com", primary)
	assert.Equal(t, "sales.team+abcd1234@shop.com", alias)

	primary, alias = guestAlias("not-an-email", "abcd1234")
	assert.Equal(t, DefaultFallbackEmail, primary)
	assert.Equal(t, "support+abcd1234@ventechgadgets.com", alias)

	_, alias = guestAlias("!!!@shop.com", "abcd1234")
	assert.Equal(t, "support+abcd1234@shop.com", alias)
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	for _, in := range []UpsertInput{
		{Email: "kwame@example.com", FullName: "Kwame Asante"},
		{Email: "abena@example.com", FullName: "Abena 100%"},
		{Phone: "0247770000", FullName: "Kojo"},
	} {
		_, err := svc.Upsert(ctx, nil, in)
		require.NoError(t, err)
	}

	rows, err := svc.Search(ctx, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = svc.Search(ctx, "ASANTE", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Kwame Asante", *rows[0].FullName)

	rows, err = svc.Search(ctx, "0%", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Abena 100%", *rows[0].FullName)

	rows, err = svc.Search(ctx, "0247", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestTouchLastOrder(t *testing.T) {
	svc, conn := newTestService(t, Options{})
	ctx := context.Background()

	customer, err := svc.Upsert(ctx, nil, UpsertInput{Email: "touch@example.com"})
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TouchLastOrder(ctx, nil, customer.ID, at))

	var stored models.Customer
	require.NoError(t, conn.First(&stored, "id = ?", customer.ID).Error)
	require.NotNil(t, stored.LastOrderAt)
	assert.True(t, stored.LastOrderAt.Equal(at))

	err = svc.TouchLastOrder(ctx, nil, uuid.New(), at)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
