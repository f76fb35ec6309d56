package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ventech/storefront-backend/internal/audit"
	"github.com/ventech/storefront-backend/internal/cart"
	"github.com/ventech/storefront-backend/internal/customers"
	"github.com/ventech/storefront-backend/internal/notifications"
	"github.com/ventech/storefront-backend/internal/orders"
	pkgauth "github.com/ventech/storefront-backend/pkg/auth"
	"github.com/ventech/storefront-backend/pkg/config"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/metrics"
	"github.com/ventech/storefront-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubOrders struct{}

func (stubOrders) Create(context.Context, orders.CreateInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending}, nil
}

func (stubOrders) Get(_ context.Context, id uuid.UUID, _ orders.Actor) (*models.Order, error) {
	return &models.Order{ID: id, OrderNumber: "VT-20260314-000001"}, nil
}

func (stubOrders) List(_ context.Context, params orders.ListParams) (*orders.ListResult, error) {
	return &orders.ListResult{Orders: []models.Order{}, Pagination: types.Pagination{Page: params.Page, Limit: params.Limit}}, nil
}

func (stubOrders) UpdateStatus(_ context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	return &models.Order{ID: id, Status: status}, nil
}

func (stubOrders) Cancel(_ context.Context, id uuid.UUID, _ orders.Actor) (*models.Order, error) {
	return &models.Order{ID: id, Status: enums.OrderStatusCancelled}, nil
}

type stubReminders struct{}

func (stubReminders) Wishlist(context.Context, uuid.UUID) (notifications.Result, error) {
	return notifications.Result{Success: true}, nil
}

func (stubReminders) CartAbandonment(context.Context) (*orders.ReminderSummary, error) {
	return &orders.ReminderSummary{}, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(*models.Order) ([]byte, error) { return []byte("%PDF"), nil }

type stubCart struct{}

func (stubCart) Replace(context.Context, uuid.UUID, []cart.ItemInput) ([]models.CartItem, error) {
	return []models.CartItem{}, nil
}

func (stubCart) List(context.Context, uuid.UUID) ([]models.CartItem, error) {
	return []models.CartItem{}, nil
}

func (stubCart) RemoveItem(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (stubCart) Clear(context.Context, uuid.UUID) error { return nil }

type stubCustomers struct{}

func (stubCustomers) Upsert(context.Context, *gorm.DB, customers.UpsertInput) (*models.Customer, error) {
	return &models.Customer{ID: uuid.New()}, nil
}

func (stubCustomers) CreateGuest(context.Context, customers.CreateGuestInput) (*models.Customer, bool, error) {
	return &models.Customer{ID: uuid.New()}, true, nil
}

func (stubCustomers) Search(context.Context, string, int) ([]models.Customer, error) {
	return []models.Customer{}, nil
}

func (stubCustomers) TouchLastOrder(context.Context, *gorm.DB, uuid.UUID, time.Time) error {
	return nil
}

type stubInbox struct{}

func (stubInbox) Publish(context.Context, *gorm.DB, *models.Notification) error { return nil }

func (stubInbox) List(context.Context, notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Notifications: []models.Notification{}}, nil
}

func (stubInbox) MarkRead(context.Context, uuid.UUID) error { return nil }

func (stubInbox) MarkAllRead(context.Context) (int64, error) { return 0, nil }

func (stubInbox) Delete(context.Context, uuid.UUID) error { return nil }

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	listErr error
}

func (a *recordingAudit) Record(_ context.Context, entry audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAudit) List(context.Context, audit.Viewer, audit.ListParams) (*audit.ListResult, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	return &audit.ListResult{Logs: []models.AdminLog{}}, nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type stubForms struct{}

func (stubForms) SendContactMessage(context.Context, notifications.ContactMessage) notifications.Result {
	return notifications.Result{Success: true}
}

func (stubForms) SendInvestmentRequest(context.Context, notifications.InvestmentRequest) notifications.Result {
	return notifications.Result{Success: true}
}

var testConfig = &config.Config{
	App:       config.AppConfig{Env: "test", FrontendURL: "http://localhost:3000"},
	JWT:       config.JWTConfig{Secret: "router-secret", Issuer: "ventech", ExpirationMinutes: 60},
	RateLimit: config.RateLimitConfig{PublicFormLimit: 5, PublicFormWindow: time.Minute},
}

func newTestRouter(t *testing.T, auditSvc *recordingAudit) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRouter(
		testConfig,
		logger.Nop(),
		reg,
		metrics.NewHTTPMetrics(reg),
		stubPinger{},
		nil,
		nil,
		stubOrders{},
		stubReminders{},
		stubRenderer{},
		stubCart{},
		stubCustomers{},
		stubInbox{},
		auditSvc,
		stubForms{},
		notifications.InlineRunner{},
	)
}

func token(t *testing.T, role enums.Role) string {
	t.Helper()
	signed, err := pkgauth.MintAccessToken(testConfig.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "staff@ventech.com",
		Role:   role,
	})
	require.NoError(t, err)
	return signed
}

func do(router http.Handler, method, target, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, &recordingAudit{})

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health/ready", "", "").Code)

	metricsResp := do(router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, metricsResp.Code)
	assert.Contains(t, metricsResp.Body.String(), "http_requests_total")
}

func TestAdminOrderRoutesRequireStaff(t *testing.T) {
	auditSvc := &recordingAudit{}
	router := newTestRouter(t, auditSvc)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/orders", "", "").Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/api/orders", "", token(t, enums.RoleCustomer)).Code)
	assert.Empty(t, auditSvc.actions())

	resp := do(router, http.MethodGet, "/api/orders?status=pending", "", token(t, enums.RoleAdmin))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{ActionOrdersList}, auditSvc.actions())

	resp = do(router, http.MethodPatch, "/api/orders/"+uuid.NewString()+"/status", `{"status":"confirmed"}`, token(t, enums.RoleSuperAdmin))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{ActionOrdersList, ActionOrdersStatus}, auditSvc.actions())
}

func TestGuestCheckoutAndOwnerRoutes(t *testing.T) {
	router := newTestRouter(t, &recordingAudit{})
	body := `{"customer_name":"Ada","customer_phone":"+2348000000","items":[{"product_name":"Cable","unit_price":"5","quantity":1}]}`

	assert.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/orders", body, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/api/orders", body, "not-a-token").Code)

	orderPath := "/api/orders/" + uuid.NewString()
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, orderPath, "", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, orderPath, "", token(t, enums.RoleCustomer)).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPatch, orderPath+"/cancel", "", token(t, enums.RoleCustomer)).Code)

	pdf := do(router, http.MethodGet, orderPath+"/pdf", "", token(t, enums.RoleCustomer))
	assert.Equal(t, http.StatusOK, pdf.Code)
	assert.Equal(t, "application/pdf", pdf.Header().Get("Content-Type"))
}

func TestReminderRoutesResolveBeforeOrderID(t *testing.T) {
	auditSvc := &recordingAudit{}
	router := newTestRouter(t, auditSvc)
	admin := token(t, enums.RoleAdmin)

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/orders/cart-abandonment-reminder", "", admin).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/orders/wishlist-reminder/"+uuid.NewString(), "", admin).Code)
	assert.Equal(t, []string{ActionCartReminder, ActionWishlistReminder}, auditSvc.actions())
}

func TestCartAndCustomerRoutes(t *testing.T) {
	auditSvc := &recordingAudit{}
	router := newTestRouter(t, auditSvc)
	customer := token(t, enums.RoleCustomer)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/cart", "", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/cart", "", customer).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPut, "/api/cart", `{"items":[]}`, customer).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodDelete, "/api/cart/"+uuid.NewString(), "", customer).Code)

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/customers/link-user", "", customer).Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodPost, "/api/customers", `{"full_name":"Walk In","phone":"+2348000000"}`, customer).Code)
	assert.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/customers", `{"full_name":"Walk In","phone":"+2348000000"}`, token(t, enums.RoleAdmin)).Code)
	assert.Equal(t, []string{ActionCustomersCreate}, auditSvc.actions())
}

func TestNotificationRoutesAreAudited(t *testing.T) {
	auditSvc := &recordingAudit{}
	router := newTestRouter(t, auditSvc)
	admin := token(t, enums.RoleAdmin)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/notifications", "", admin).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPatch, "/api/notifications/read-all", "", admin).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPatch, "/api/notifications/"+uuid.NewString()+"/read", "", admin).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodDelete, "/api/notifications/"+uuid.NewString(), "", admin).Code)

	assert.Equal(t, []string{
		ActionNotificationsList,
		ActionNotificationsAll,
		ActionNotificationsRead,
		ActionNotificationsDel,
	}, auditSvc.actions())
}

func TestLogsRouteIsNotDoubleAudited(t *testing.T) {
	auditSvc := &recordingAudit{listErr: pkgerrors.New(pkgerrors.CodeForbidden, "admin logs are restricted")}
	router := newTestRouter(t, auditSvc)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/api/logs", "", "").Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/api/logs", "", token(t, enums.RoleAdmin)).Code)
	assert.Empty(t, auditSvc.actions())
}

func TestPublicFormsWithoutRedis(t *testing.T) {
	router := newTestRouter(t, &recordingAudit{})
	contact := `{"name":"Ada","email":"ada@example.com","subject":"Hi","message":"Hello"}`

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/contact", contact, "").Code)
	}
}
