package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ventech/storefront-backend/api/routes"
	"github.com/ventech/storefront-backend/internal/audit"
	"github.com/ventech/storefront-backend/internal/cart"
	"github.com/ventech/storefront-backend/internal/customers"
	"github.com/ventech/storefront-backend/internal/invoice"
	"github.com/ventech/storefront-backend/internal/notifications"
	"github.com/ventech/storefront-backend/internal/orders"
	"github.com/ventech/storefront-backend/internal/users"
	"github.com/ventech/storefront-backend/internal/wishlist"
	"github.com/ventech/storefront-backend/pkg/auth/session"
	"github.com/ventech/storefront-backend/pkg/config"
	"github.com/ventech/storefront-backend/pkg/db"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/mailer"
	"github.com/ventech/storefront-backend/pkg/metrics"
	"github.com/ventech/storefront-backend/pkg/migrate"
	"github.com/ventech/storefront-backend/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var (
		redisClient *redis.Client
		sessions    session.AccessSessionChecker
	)
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		if cfg.JWT.RequireSession {
			manager, err := session.NewManager(redisClient)
			if err != nil {
				return err
			}
			sessions = manager
		}
	} else {
		logg.Warn(ctx, "redis not configured; idempotency and public form rate limits disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mail, err := mailer.NewSMTP(cfg.SMTP)
	if err != nil {
		return err
	}
	templates, err := notifications.LoadTemplates(cfg.Mail.TemplateDir)
	if err != nil {
		return err
	}
	renderer := invoice.NewRenderer(cfg.Store)
	userRepo := users.NewRepository(dbClient.DB())
	dispatcher, err := notifications.NewDispatcher(
		userRepo,
		userRepo,
		mail,
		templates,
		renderer,
		metrics.NewDispatchMetrics(registry),
		logg,
		notifications.Options{
			Store:             cfg.Store,
			OperationsMailbox: cfg.Mail.OperationsMailbox,
			FrontendURL:       cfg.App.FrontendURL,
		},
	)
	if err != nil {
		return err
	}
	runner := notifications.NewAsyncRunner(logg)

	inbox, err := notifications.NewInbox(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	customerService, err := customers.NewService(customers.NewRepository(dbClient.DB()), logg, customers.Options{
		FallbackEmail: cfg.Mail.FallbackEmail,
	})
	if err != nil {
		return err
	}
	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, dbClient, logg)
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		customerService,
		inbox,
		dispatcher,
		runner,
		logg,
		orders.Options{Currency: cfg.Store.CurrencyPrefix},
	)
	if err != nil {
		return err
	}
	reminders, err := orders.NewReminders(
		wishlist.NewRepository(dbClient.DB()),
		cartRepo,
		dispatcher,
		metrics.NewJobMetrics(registry),
		logg,
		orders.ReminderOptions{
			CartIdleThreshold: cfg.Reminders.CartIdleThreshold,
			Concurrency:       cfg.Reminders.FanOutConcurrency,
		},
	)
	if err != nil {
		return err
	}
	auditService, err := audit.NewService(
		audit.NewRepository(dbClient.DB()),
		audit.NewPolicy(cfg.Audit.WhitelistedEmails),
		metrics.NewAuditMetrics(registry),
		logg,
	)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(
		cfg,
		logg,
		registry,
		metrics.NewHTTPMetrics(registry),
		dbClient,
		redisClient,
		sessions,
		ordersService,
		reminders,
		renderer,
		cartService,
		customerService,
		inbox,
		auditService,
		dispatcher,
		runner,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   server.Addr,
		"sqlite": cfg.FeatureFlags.UseSQLite,
		"redis":  redisClient != nil,
	})
	logg.Info(logCtx, "starting api server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(logCtx, "shutting down api server")
		return multierr.Combine(
			server.Shutdown(shutdownCtx),
			runner.Wait(shutdownCtx),
		)
	})
	return g.Wait()
}
