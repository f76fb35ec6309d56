package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ventech/storefront-backend/internal/cart"
	"github.com/ventech/storefront-backend/internal/cron"
	"github.com/ventech/storefront-backend/internal/invoice"
	"github.com/ventech/storefront-backend/internal/notifications"
	"github.com/ventech/storefront-backend/internal/orders"
	"github.com/ventech/storefront-backend/internal/users"
	"github.com/ventech/storefront-backend/internal/wishlist"
	"github.com/ventech/storefront-backend/pkg/config"
	"github.com/ventech/storefront-backend/pkg/db"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/mailer"
	"github.com/ventech/storefront-backend/pkg/metrics"
	"github.com/ventech/storefront-backend/pkg/redis"
)

const (
	lockKeyFormat   = "ventech:cron-worker:lock:%s"
	shutdownTimeout = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		var redisClient *redis.Client
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		lock, err = cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
		if err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "redis not configured; cron lock is process-local")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mail, err := mailer.NewSMTP(cfg.SMTP)
	if err != nil {
		return err
	}
	templates, err := notifications.LoadTemplates(cfg.Mail.TemplateDir)
	if err != nil {
		return err
	}
	userRepo := users.NewRepository(dbClient.DB())
	dispatcher, err := notifications.NewDispatcher(
		userRepo,
		userRepo,
		mail,
		templates,
		invoice.NewRenderer(cfg.Store),
		metrics.NewDispatchMetrics(reg),
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
	jobMetrics := metrics.NewJobMetrics(reg)
	reminders, err := orders.NewReminders(
		wishlist.NewRepository(dbClient.DB()),
		cart.NewRepository(dbClient.DB()),
		dispatcher,
		jobMetrics,
		logg,
		orders.ReminderOptions{
			CartIdleThreshold: cfg.Reminders.CartIdleThreshold,
			Concurrency:       cfg.Reminders.FanOutConcurrency,
		},
	)
	if err != nil {
		return err
	}

	cartJob, err := cron.NewCartAbandonmentJob(reminders, logg)
	if err != nil {
		return err
	}
	inboxJob, err := cron.NewInboxCleanupJob(notifications.NewRepository(dbClient.DB()), cfg.Cron.InboxRetention, logg)
	if err != nil {
		return err
	}
	registry, err := cron.NewRegistry(cartJob, inboxJob)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + metricsPort(cfg),
		Handler:           opsRouter(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"interval": cfg.Cron.Interval.String(),
		"addr":     server.Addr,
		"redis":    cfg.Redis.Enabled(),
	}), "starting cron worker")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return service.Run(gctx)
	})
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
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// opsRouter serves liveness and the worker's own metrics registry.
func opsRouter(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func metricsPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return cfg.App.Port
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
