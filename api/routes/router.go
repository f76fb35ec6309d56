package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ventech/storefront-backend/api/controllers"
	"github.com/ventech/storefront-backend/api/middleware"
	"github.com/ventech/storefront-backend/internal/audit"
	"github.com/ventech/storefront-backend/internal/cart"
	"github.com/ventech/storefront-backend/internal/customers"
	"github.com/ventech/storefront-backend/internal/notifications"
	"github.com/ventech/storefront-backend/internal/orders"
	"github.com/ventech/storefront-backend/pkg/auth/session"
	"github.com/ventech/storefront-backend/pkg/config"
	"github.com/ventech/storefront-backend/pkg/db"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/metrics"
	"github.com/ventech/storefront-backend/pkg/redis"
)

// Audit actions recorded for staff routes.
const (
	ActionOrdersList        = "orders:list"
	ActionOrdersStatus      = "orders:update-status"
	ActionWishlistReminder  = "orders:wishlist-reminder"
	ActionCartReminder      = "orders:cart-abandonment-reminder"
	ActionCustomersCreate   = "customers:create"
	ActionCustomersSearch   = "customers:search"
	ActionNotificationsList = "notifications:list"
	ActionNotificationsRead = "notifications:mark-read"
	ActionNotificationsAll  = "notifications:mark-all-read"
	ActionNotificationsDel  = "notifications:delete"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	ordersSvc orders.Service,
	reminders controllers.ReminderService,
	invoices controllers.InvoiceRenderer,
	cartService cart.Service,
	customerService customers.Service,
	inbox notifications.Inbox,
	auditService audit.Service,
	forms controllers.PublicFormMailer,
	runner notifications.Runner,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.FrontendURL),
	)

	var (
		idempotencyStore redis.IdempotencyStore
		limiter          redis.RateLimiter
		readiness        = map[string]controllers.Pinger{"database": dbP}
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		limiter = redisClient
		readiness["redis"] = redisClient
	}

	requireAuth := middleware.Auth(cfg.JWT, sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, sessions, logg)
	staff := middleware.RequireStaff(logg)
	audited := func(action string) func(http.Handler) http.Handler {
		return middleware.AdminAudit(action, auditService)
	}
	formPolicy := middleware.RateLimitPolicy{
		Name:   "public_form",
		Limit:  cfg.RateLimit.PublicFormLimit,
		Window: cfg.RateLimit.PublicFormWindow,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/orders", func(r chi.Router) {
		r.With(optionalAuth, middleware.Idempotency(idempotencyStore, middleware.DefaultIdempotencyTTL, logg)).
			Post("/", controllers.CreateOrder(ordersSvc, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/{id}", controllers.GetOrder(ordersSvc, logg))
			r.Get("/{id}/pdf", controllers.DownloadOrderPDF(ordersSvc, invoices, logg))
			r.Patch("/{id}/cancel", controllers.CancelOrder(ordersSvc, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, staff)
			r.With(audited(ActionOrdersList)).Get("/", controllers.ListOrders(ordersSvc, logg))
			r.With(audited(ActionOrdersStatus)).Patch("/{id}/status", controllers.UpdateOrderStatus(ordersSvc, logg))
			r.With(audited(ActionWishlistReminder)).Post("/wishlist-reminder/{user_id}", controllers.SendWishlistReminder(reminders, logg))
			r.With(audited(ActionCartReminder)).Post("/cart-abandonment-reminder", controllers.SendCartAbandonmentReminders(reminders, logg))
		})
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", controllers.GetCart(cartService, logg))
		r.Put("/", controllers.ReplaceCart(cartService, logg))
		r.Delete("/", controllers.ClearCart(cartService, logg))
		r.Delete("/{productId}", controllers.RemoveCartItem(cartService, logg))
	})

	r.Route("/api/customers", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/link-user", controllers.LinkCustomerUser(customerService, logg))
		r.Group(func(r chi.Router) {
			r.Use(staff)
			r.With(audited(ActionCustomersCreate)).Post("/", controllers.CreateCustomer(customerService, logg))
			r.With(audited(ActionCustomersSearch)).Get("/search", controllers.SearchCustomers(customerService, logg))
		})
	})

	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(requireAuth, staff)
		r.With(audited(ActionNotificationsList)).Get("/", controllers.ListNotifications(inbox, logg))
		r.With(audited(ActionNotificationsAll)).Patch("/read-all", controllers.MarkAllNotificationsRead(inbox, logg))
		r.With(audited(ActionNotificationsRead)).Patch("/{id}/read", controllers.MarkNotificationRead(inbox, logg))
		r.With(audited(ActionNotificationsDel)).Delete("/{id}", controllers.DeleteNotification(inbox, logg))
	})

	// The audit service records its own VIEW_ADMIN_LOGS entry.
	r.With(requireAuth).Get("/api/logs", controllers.ListAdminLogs(auditService, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(formPolicy, limiter, logg))
		r.Post("/api/contact", controllers.SubmitContact(forms, runner, logg))
		r.Post("/api/investment", controllers.SubmitInvestment(forms, runner, logg))
	})

	return r
}
