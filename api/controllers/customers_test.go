package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ventech/storefront-backend/internal/customers"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	"github.com/ventech/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type stubCustomers struct {
	created    bool
	guest      customers.CreateGuestInput
	upserted   customers.UpsertInput
	searchTerm string
	limit      int
}

func (s *stubCustomers) Upsert(_ context.Context, _ *gorm.DB, input customers.UpsertInput) (*models.Customer, error) {
	s.upserted = input
	return &models.Customer{ID: uuid.New(), UserID: input.UserID}, nil
}

func (s *stubCustomers) CreateGuest(_ context.Context, input customers.CreateGuestInput) (*models.Customer, bool, error) {
	s.guest = input
	return &models.Customer{ID: uuid.New()}, s.created, nil
}

func (s *stubCustomers) Search(_ context.Context, term string, limit int) ([]models.Customer, error) {
	s.searchTerm = term
	s.limit = limit
	return []models.Customer{}, nil
}

func (s *stubCustomers) TouchLastOrder(context.Context, *gorm.DB, uuid.UUID, time.Time) error {
	return nil
}

func TestCreateCustomerStatus(t *testing.T) {
	adminID := uuid.New()
	body := `{"full_name":"Walk In","phone":"+2348000000"}`

	svc := &stubCustomers{created: true}
	w, _ := call(t, CreateCustomer(svc, logger.Nop()), http.MethodPost, "/api/customers", body, asPrincipal(adminID, enums.RoleAdmin))
	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.guest.CreatedBy)
	assert.Equal(t, adminID, *svc.guest.CreatedBy)

	svc.created = false
	w, env := call(t, CreateCustomer(svc, logger.Nop()), http.MethodPost, "/api/customers", body, asPrincipal(adminID, enums.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Customer already exists", env.Message)
}

func TestCreateCustomerValidation(t *testing.T) {
	svc := &stubCustomers{}
	for _, body := range []string{
		`{"full_name":"","phone":"+2348000000"}`,
		`{"full_name":"Walk In","phone":"123"}`,
		`{"full_name":"Walk In","phone":"+2348000000","email":"not-an-email"}`,
	} {
		w, _ := call(t, CreateCustomer(svc, logger.Nop()), http.MethodPost, "/api/customers", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestSearchCustomers(t *testing.T) {
	svc := &stubCustomers{}
	w, _ := call(t, SearchCustomers(svc, logger.Nop()), http.MethodGet, "/api/customers/search?q=ada", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada", svc.searchTerm)
	assert.Equal(t, customers.DefaultSearchLimit, svc.limit)

	w, _ = call(t, SearchCustomers(svc, logger.Nop()), http.MethodGet, "/api/customers/search?q=ada&limit=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLinkCustomerUser(t *testing.T) {
	svc := &stubCustomers{}
	userID := uuid.New()

	w, _ := call(t, LinkCustomerUser(svc, logger.Nop()), http.MethodPost, "/api/customers/link-user", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := call(t, LinkCustomerUser(svc, logger.Nop()), http.MethodPost, "/api/customers/link-user", "", asPrincipal(userID, enums.RoleCustomer))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Customer linked successfully", env.Message)
	require.NotNil(t, svc.upserted.UserID)
	assert.Equal(t, userID, *svc.upserted.UserID)
	assert.Equal(t, "shopper@ventech.com", svc.upserted.Email)
	assert.Equal(t, enums.CustomerSourceRegistered, svc.upserted.Source)
}
