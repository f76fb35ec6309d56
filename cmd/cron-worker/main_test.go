package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ventech/storefront-backend/pkg/metrics"
)

func TestLockKeyScopesByEnv(t *testing.T) {
	assert.Equal(t, "ventech:cron-worker:lock:prod", lockKey("prod"))
	assert.Equal(t, "ventech:cron-worker:lock:local", lockKey(""))
}

func TestOpsRouterServesWorkerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	jobs := metrics.NewJobMetrics(reg)
	jobs.IncFailure("inbox_cleanup")

	h := opsRouter(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_job_failure_total{job="inbox_cleanup"} 1`)
}
