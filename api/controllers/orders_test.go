package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ventech/storefront-backend/internal/notifications"
	"github.com/ventech/storefront-backend/internal/orders"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/types"
)

type stubOrders struct {
	created    orders.CreateInput
	listed     orders.ListParams
	getActor   orders.Actor
	statusSeen enums.OrderStatus
	order      *models.Order
	err        error
}

func (s *stubOrders) Create(_ context.Context, input orders.CreateInput) (*models.Order, error) {
	s.created = input
	return s.order, s.err
}

func (s *stubOrders) Get(_ context.Context, _ uuid.UUID, actor orders.Actor) (*models.Order, error) {
	s.getActor = actor
	return s.order, s.err
}

func (s *stubOrders) List(_ context.Context, params orders.ListParams) (*orders.ListResult, error) {
	s.listed = params
	if s.err != nil {
		return nil, s.err
	}
	return &orders.ListResult{
		Orders:     []models.Order{*s.order},
		Pagination: types.Pagination{Page: params.Page, Limit: params.Limit, Total: 1, TotalPages: 1},
	}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, _ uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	s.statusSeen = status
	return s.order, s.err
}

func (s *stubOrders) Cancel(_ context.Context, _ uuid.UUID, actor orders.Actor) (*models.Order, error) {
	s.getActor = actor
	return s.order, s.err
}

type stubRenderer struct {
	err error
}

func (s stubRenderer) Render(*models.Order) ([]byte, error) {
	return []byte("%PDF-1.3 test"), s.err
}

type stubReminders struct {
	result  notifications.Result
	summary *orders.ReminderSummary
	err     error
}

func (s stubReminders) Wishlist(context.Context, uuid.UUID) (notifications.Result, error) {
	return s.result, s.err
}

func (s stubReminders) CartAbandonment(context.Context) (*orders.ReminderSummary, error) {
	return s.summary, s.err
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "VT-20260314-ABC123",
		CustomerName:  "Ada",
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Total:         decimal.RequireFromString("165.00"),
	}
}

func TestCreateOrder(t *testing.T) {
	productID := uuid.New()
	body := `{
		"customer_name": "Ada",
		"customer_email": "ada@example.com",
		"items": [{"product_id": "` + productID.String() + `", "quantity": 2}],
		"discount": "10",
		"delivery_fee": 20
	}`

	t.Run("guest checkout", func(t *testing.T) {
		svc := &stubOrders{order: sampleOrder()}
		w, env := call(t, CreateOrder(svc, logger.Nop()), http.MethodPost, "/api/orders", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.Success)
		assert.Equal(t, "Order created successfully", env.Message)
		assert.Nil(t, svc.created.UserID)
		require.Len(t, svc.created.Items, 1)
		assert.Equal(t, productID, *svc.created.Items[0].ProductID)
		assert.Equal(t, 2, svc.created.Items[0].Quantity)
		assert.True(t, decimal.NewFromInt(10).Equal(svc.created.Discount))
		assert.True(t, decimal.NewFromInt(20).Equal(svc.created.DeliveryFee))
	})

	t.Run("authenticated caller owns the order", func(t *testing.T) {
		svc := &stubOrders{order: sampleOrder()}
		userID := uuid.New()
		w, _ := call(t, CreateOrder(svc, logger.Nop()), http.MethodPost, "/api/orders", body, asPrincipal(userID, enums.RoleCustomer))

		assert.Equal(t, http.StatusCreated, w.Code)
		require.NotNil(t, svc.created.UserID)
		assert.Equal(t, userID, *svc.created.UserID)
	})

	t.Run("rejects unknown fields and empty items", func(t *testing.T) {
		svc := &stubOrders{order: sampleOrder()}
		for _, bad := range []string{
			`{"customer_name":"Ada","customer_email":"ada@example.com","items":[{"product_name":"x","quantity":1}],"coupon":"FREE"}`,
			`{"customer_name":"Ada","customer_email":"ada@example.com","items":[]}`,
			`{"customer_name":"Ada","items":[{"product_name":"x","quantity":1}]}`,
		} {
			w, env := call(t, CreateOrder(svc, logger.Nop()), http.MethodPost, "/api/orders", bad)
			assert.Equal(t, http.StatusBadRequest, w.Code, bad)
			require.NotNil(t, env.Errors)
			assert.Equal(t, string(pkgerrors.CodeValidation), env.Errors.Code)
		}
	})
}

func TestGetOrderPassesActor(t *testing.T) {
	svc := &stubOrders{order: sampleOrder()}
	userID := uuid.New()
	w, env := call(t, GetOrder(svc, logger.Nop()), http.MethodGet, "/api/orders/x", "",
		withParam("id", svc.order.ID.String()), asPrincipal(userID, enums.RoleCustomer))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, userID, svc.getActor.UserID)
	assert.Equal(t, enums.RoleCustomer, svc.getActor.Role)

	svc.err = pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	w, _ = call(t, GetOrder(svc, logger.Nop()), http.MethodGet, "/api/orders/x", "", withParam("id", svc.order.ID.String()))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = call(t, GetOrder(svc, logger.Nop()), http.MethodGet, "/api/orders/x", "", withParam("id", "nope"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrdersParsesFilters(t *testing.T) {
	svc := &stubOrders{order: sampleOrder()}
	w, env := call(t, ListOrders(svc, logger.Nop()), http.MethodGet, "/api/orders?status=shipped&payment_status=paid&page=2&limit=5", "")

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Page)
	require.NotNil(t, svc.listed.Status)
	assert.Equal(t, enums.OrderStatusShipped, *svc.listed.Status)
	require.NotNil(t, svc.listed.PaymentStatus)
	assert.Equal(t, enums.PaymentStatusPaid, *svc.listed.PaymentStatus)
	assert.Equal(t, 5, svc.listed.Limit)

	w, _ = call(t, ListOrders(svc, logger.Nop()), http.MethodGet, "/api/orders?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := &stubOrders{order: sampleOrder()}
	id := withParam("id", svc.order.ID.String())

	w, _ := call(t, UpdateOrderStatus(svc, logger.Nop()), http.MethodPatch, "/", `{"status":"confirmed"}`, id)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, enums.OrderStatusConfirmed, svc.statusSeen)

	w, _ = call(t, UpdateOrderStatus(svc, logger.Nop()), http.MethodPatch, "/", `{"status":"teleported"}`, withParam("id", svc.order.ID.String()))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move order from pending to delivered")
	w, env := call(t, UpdateOrderStatus(svc, logger.Nop()), http.MethodPatch, "/", `{"status":"delivered"}`, withParam("id", svc.order.ID.String()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(pkgerrors.CodeInvalidTransition), env.Errors.Code)
}

func TestCancelOrder(t *testing.T) {
	svc := &stubOrders{order: sampleOrder()}
	ownerID := uuid.New()
	w, env := call(t, CancelOrder(svc, logger.Nop()), http.MethodPatch, "/", "",
		withParam("id", svc.order.ID.String()), asPrincipal(ownerID, enums.RoleCustomer))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Order cancelled successfully", env.Message)
	assert.Equal(t, ownerID, svc.getActor.UserID)
}

func TestDownloadOrderPDF(t *testing.T) {
	svc := &stubOrders{order: sampleOrder()}
	w, _ := call(t, DownloadOrderPDF(svc, stubRenderer{}, logger.Nop()), http.MethodGet, "/", "", withParam("id", svc.order.ID.String()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "invoice-VT-20260314-ABC123.pdf")
	assert.Equal(t, "%PDF-1.3 test", w.Body.String())

	w, _ = call(t, DownloadOrderPDF(svc, stubRenderer{err: errors.New("font missing")}, logger.Nop()), http.MethodGet, "/", "", withParam("id", svc.order.ID.String()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestReminderEndpoints(t *testing.T) {
	skipped := stubReminders{result: notifications.Result{Success: true, Skipped: true, Reason: orders.ReasonEmptyWishlist}}
	w, env := call(t, SendWishlistReminder(skipped, logger.Nop()), http.MethodPost, "/", "", withParam("user_id", uuid.NewString()))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Wishlist reminder skipped", env.Message)

	var result notifications.Result
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, orders.ReasonEmptyWishlist, result.Reason)

	sent := stubReminders{summary: &orders.ReminderSummary{Candidates: 3, Sent: 2, Skipped: 1}}
	w, env = call(t, SendCartAbandonmentReminders(sent, logger.Nop()), http.MethodPost, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cart abandonment reminders processed", env.Message)
}
