package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/internal/notifications"
	"github.com/ventech/storefront-backend/pkg/db/models"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/metrics"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	jobWishlistReminder = "wishlist_reminder"
	jobCartAbandonment  = "cart_abandonment"

	ReasonEmptyWishlist = "Wishlist is empty"

	defaultReminderConcurrency = 4
	defaultCartIdleThreshold   = 24 * time.Hour
)

type wishlistReader interface {
	ListProducts(ctx context.Context, userID uuid.UUID) ([]models.Product, error)
}

type cartReader interface {
	ListIdleUsers(ctx context.Context, idleSince time.Time) ([]uuid.UUID, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
}

type reminderMailer interface {
	SendWishlistReminder(ctx context.Context, userID uuid.UUID, products []models.Product) notifications.Result
	SendCartReminder(ctx context.Context, userID uuid.UUID, items []models.CartItem) notifications.Result
}

// ReminderOptions tunes the cart abandonment sweep.
type ReminderOptions struct {
	CartIdleThreshold time.Duration
	Concurrency       int
	Now               func() time.Time
}

// ReminderSummary reports one cart abandonment sweep.
type ReminderSummary struct {
	Candidates int      `json:"candidates"`
	Sent       int      `json:"sent"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// Reminders sends read-only marketing nudges. Nothing here mutates carts or orders,
// so re-running a sweep simply resends.
type Reminders struct {
	wishlist    wishlistReader
	carts       cartReader
	mail        reminderMailer
	jobs        *metrics.JobMetrics
	logg        *logger.Logger
	idle        time.Duration
	concurrency int
	now         func() time.Time
}

func NewReminders(
	wishlist wishlistReader,
	carts cartReader,
	mail reminderMailer,
	jobs *metrics.JobMetrics,
	logg *logger.Logger,
	opts ReminderOptions,
) (*Reminders, error) {
	if wishlist == nil {
		return nil, fmt.Errorf("wishlist reader required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if mail == nil {
		return nil, fmt.Errorf("reminder mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	r := &Reminders{
		wishlist:    wishlist,
		carts:       carts,
		mail:        mail,
		jobs:        jobs,
		logg:        logg,
		idle:        opts.CartIdleThreshold,
		concurrency: opts.Concurrency,
		now:         opts.Now,
	}
	if r.idle <= 0 {
		r.idle = defaultCartIdleThreshold
	}
	if r.concurrency <= 0 {
		r.concurrency = defaultReminderConcurrency
	}
	if r.now == nil {
		r.now = func() time.Time { return time.Now().UTC() }
	}
	return r, nil
}

// Wishlist emails one user their saved products.
func (r *Reminders) Wishlist(ctx context.Context, userID uuid.UUID) (notifications.Result, error) {
	if userID == uuid.Nil {
		return notifications.Result{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	start := time.Now()
	defer func() { r.jobs.ObserveDuration(jobWishlistReminder, time.Since(start)) }()

	products, err := r.wishlist.ListProducts(ctx, userID)
	if err != nil {
		r.jobs.IncFailure(jobWishlistReminder)
		return notifications.Result{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load wishlist")
	}
	r.jobs.AddRecipients(jobWishlistReminder, 1)
	if len(products) == 0 {
		r.jobs.IncSuccess(jobWishlistReminder)
		return notifications.Result{Success: true, Skipped: true, Reason: ReasonEmptyWishlist}, nil
	}

	res := r.mail.SendWishlistReminder(ctx, userID, products)
	if res.Success {
		r.jobs.IncSuccess(jobWishlistReminder)
	} else {
		r.jobs.IncFailure(jobWishlistReminder)
	}
	return res, nil
}

// CartAbandonment emails every user whose cart has been idle past the threshold.
// Per-recipient failures are reported in the summary, not as an error.
func (r *Reminders) CartAbandonment(ctx context.Context) (*ReminderSummary, error) {
	start := time.Now()
	defer func() { r.jobs.ObserveDuration(jobCartAbandonment, time.Since(start)) }()

	userIDs, err := r.carts.ListIdleUsers(ctx, r.now().Add(-r.idle))
	if err != nil {
		r.jobs.IncFailure(jobCartAbandonment)
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list idle carts")
	}

	summary := &ReminderSummary{Candidates: len(userIDs)}
	var (
		mu       sync.Mutex
		failures error
	)
	record := func(res notifications.Result, cause error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case cause != nil:
			summary.Failed++
			failures = multierr.Append(failures, cause)
		case res.Skipped:
			summary.Skipped++
		default:
			summary.Sent++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			items, err := r.carts.ListByUser(gctx, userID)
			if err != nil {
				record(notifications.Result{}, fmt.Errorf("user %s: %w", userID, err))
				return nil
			}
			if len(items) == 0 {
				record(notifications.Result{Success: true, Skipped: true}, nil)
				return nil
			}
			res := r.mail.SendCartReminder(gctx, userID, items)
			if !res.Success {
				record(res, fmt.Errorf("user %s: %s", userID, res.Reason))
				return nil
			}
			record(res, nil)
			return nil
		})
	}
	_ = g.Wait()

	r.jobs.AddRecipients(jobCartAbandonment, len(userIDs))
	if failures != nil {
		for _, err := range multierr.Errors(failures) {
			summary.Errors = append(summary.Errors, err.Error())
		}
		r.jobs.IncFailure(jobCartAbandonment)
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"failed": summary.Failed,
			"error":  failures.Error(),
		}), "reminders.cart_abandonment.partial_failure")
	} else {
		r.jobs.IncSuccess(jobCartAbandonment)
	}
	r.logg.Info(r.logg.WithFields(ctx, map[string]any{
		"candidates": summary.Candidates,
		"sent":       summary.Sent,
		"skipped":    summary.Skipped,
	}), "reminders.cart_abandonment.done")
	return summary, nil
}
