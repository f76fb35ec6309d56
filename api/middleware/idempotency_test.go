package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	})
}

func post(h http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestIdempotencyReplaysSameRequest(t *testing.T) {
	var calls int32
	h := Idempotency(newFakeStore(), time.Hour, nil)(countingHandler(&calls, http.StatusCreated))

	first := post(h, "abc", `{"items":[1]}`)
	second := post(h, "abc", `{"items":[1]}`)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	var calls int32
	h := Idempotency(newFakeStore(), time.Hour, nil)(countingHandler(&calls, http.StatusCreated))

	post(h, "abc", `{"items":[1]}`)
	resp := post(h, "abc", `{"items":[2]}`)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "IDEMPOTENCY_KEY_REUSED")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyPassesThrough(t *testing.T) {
	var calls int32
	h := Idempotency(newFakeStore(), time.Hour, nil)(countingHandler(&calls, http.StatusCreated))
	post(h, "", `{}`)
	post(h, "", `{}`)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "no header means no replay")

	var failures int32
	store := newFakeStore()
	failing := Idempotency(store, time.Hour, nil)(countingHandler(&failures, http.StatusInternalServerError))
	post(failing, "k", `{}`)
	post(failing, "k", `{}`)
	assert.Equal(t, int32(2), atomic.LoadInt32(&failures), "server errors are retried")
	assert.Empty(t, store.data)

	var unstored int32
	noStore := Idempotency(nil, time.Hour, nil)(countingHandler(&unstored, http.StatusCreated))
	post(noStore, "k", `{}`)
	post(noStore, "k", `{}`)
	require.Equal(t, int32(2), atomic.LoadInt32(&unstored))
}
