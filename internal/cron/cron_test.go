package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ventech/storefront-backend/internal/orders"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/metrics"
)

type testJob struct {
	name string
	err  error
	runs int
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(context.Context) error {
	j.runs++
	return j.err
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error         { return nil }

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry(&testJob{name: "a"}, &testJob{name: "a"})
	require.Error(t, err)

	registry, err := NewRegistry(&testJob{name: "a"}, nil, &testJob{name: "b"})
	require.NoError(t, err)
	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRunOnceRunsEveryJobAndRecordsOutcome(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	registry, err := NewRegistry(ok, failing)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     &LocalLock{},
		Metrics:  metrics.NewJobMetrics(reg),
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)

	require.NoError(t, svc.RunOnce(context.Background()), "lock is released after a cycle")
	assert.Equal(t, 2, ok.runs)

	count, err := testutil.GatherAndCount(reg, "storefront_job_failure_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	registry, err := NewRegistry(job)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: heldLock{}})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "ok"}
	registry, err := NewRegistry(job)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: &LocalLock{}, Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
	assert.Zero(t, job.runs)
}

type fakeRedis struct {
	values map[string]string
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func TestRedisLockOwnership(t *testing.T) {
	t.Setenv("VENTECH_WORKER_ID", "cron-a")
	store := &fakeRedis{values: map[string]string{}}
	first, err := NewRedisLock(store, "ventech:cron:lock", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "ventech:cron:lock", 0)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Regexp(t, "^cron-a:", store.values["ventech:cron:lock"])

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(context.Background()))
	assert.Contains(t, store.values, "ventech:cron:lock", "non-owner release keeps the lease")

	require.NoError(t, first.Release(context.Background()))
	assert.Empty(t, store.values)

	_, err = NewRedisLock(nil, "k", 0)
	assert.Error(t, err)
}

type stubSweeper struct {
	summary *orders.ReminderSummary
	err     error
}

func (s stubSweeper) CartAbandonment(context.Context) (*orders.ReminderSummary, error) {
	return s.summary, s.err
}

func TestCartAbandonmentJob(t *testing.T) {
	job, err := NewCartAbandonmentJob(stubSweeper{summary: &orders.ReminderSummary{Candidates: 2, Sent: 2}}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, JobCartAbandonment, job.Name())
	assert.NoError(t, job.Run(context.Background()))

	job, err = NewCartAbandonmentJob(stubSweeper{err: errors.New("db down")}, logger.Nop())
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}

type fakePurger struct {
	cutoff time.Time
	err    error
}

func (f *fakePurger) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestInboxCleanupJobUsesRetention(t *testing.T) {
	purger := &fakePurger{}
	jobIface, err := NewInboxCleanupJob(purger, 0, logger.Nop())
	require.NoError(t, err)
	job := jobIface.(*inboxCleanupJob)
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-defaultInboxRetention), purger.cutoff)

	purger.err = errors.New("locked")
	assert.Error(t, job.Run(context.Background()))
}
