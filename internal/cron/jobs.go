package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ventech/storefront-backend/internal/orders"
	"github.com/ventech/storefront-backend/pkg/logger"
)

const (
	JobCartAbandonment = "cart_abandonment_sweep"
	JobInboxCleanup    = "inbox_cleanup"

	defaultInboxRetention = 30 * 24 * time.Hour
)

type cartSweeper interface {
	CartAbandonment(ctx context.Context) (*orders.ReminderSummary, error)
}

type cartAbandonmentJob struct {
	reminders cartSweeper
	logg      *logger.Logger
}

// NewCartAbandonmentJob schedules the same sweep the admin endpoint triggers.
func NewCartAbandonmentJob(reminders cartSweeper, logg *logger.Logger) (Job, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminders required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &cartAbandonmentJob{reminders: reminders, logg: logg}, nil
}

func (j *cartAbandonmentJob) Name() string { return JobCartAbandonment }

func (j *cartAbandonmentJob) Run(ctx context.Context) error {
	summary, err := j.reminders.CartAbandonment(ctx)
	if err != nil {
		return fmt.Errorf("cart abandonment sweep: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"candidates": summary.Candidates,
		"sent":       summary.Sent,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
	}), "cron.cart_abandonment.summary")
	return nil
}

type inboxPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type inboxCleanupJob struct {
	repo      inboxPurger
	logg      *logger.Logger
	retention time.Duration
	now       func() time.Time
}

// NewInboxCleanupJob purges read admin notifications older than retention.
func NewInboxCleanupJob(repo inboxPurger, retention time.Duration, logg *logger.Logger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if retention <= 0 {
		retention = defaultInboxRetention
	}
	return &inboxCleanupJob{repo: repo, logg: logg, retention: retention, now: time.Now}, nil
}

func (j *inboxCleanupJob) Name() string { return JobInboxCleanup }

func (j *inboxCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("inbox cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "cron.inbox_cleanup.complete")
	return nil
}
