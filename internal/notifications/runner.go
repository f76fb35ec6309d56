package notifications

import (
	"context"
	"fmt"
	"sync"

	"github.com/ventech/storefront-backend/pkg/logger"
)

// Runner executes best-effort side effects outside the request lifecycle.
type Runner interface {
	Go(ctx context.Context, task string, fn func(ctx context.Context))
}

// AsyncRunner starts one goroutine per task with a context detached from the
// caller's cancellation. Delivery is at-most-once; Wait lets shutdown drain
// in-flight sends.
type AsyncRunner struct {
	logg *logger.Logger
	wg   sync.WaitGroup
}

func NewAsyncRunner(logg *logger.Logger) *AsyncRunner {
	if logg == nil {
		logg = logger.Nop()
	}
	return &AsyncRunner{logg: logg}
}

func (r *AsyncRunner) Go(ctx context.Context, task string, fn func(ctx context.Context)) {
	detached := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logg.Error(r.logg.WithField(detached, "task", task), "notifications.task.panic", fmt.Errorf("panic: %v", rec))
			}
		}()
		fn(detached)
	}()
}

// Wait blocks until every started task returns or ctx ends.
func (r *AsyncRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InlineRunner runs tasks on the calling goroutine.
type InlineRunner struct{}

func (InlineRunner) Go(ctx context.Context, _ string, fn func(ctx context.Context)) {
	fn(context.WithoutCancel(ctx))
}
