package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/types"
)

type envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       map[string]any    `json:"data"`
	Errors     *types.APIError   `json:"errors"`
	Pagination *types.Pagination `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, "Order created", map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := decode(t, w)
	assert.True(t, body.Success)
	assert.Equal(t, "Order created", body.Message)
	assert.Equal(t, "world", body.Data["hello"])
	assert.Nil(t, body.Errors)
	assert.Nil(t, body.Pagination)
}

func TestWritePage(t *testing.T) {
	w := httptest.NewRecorder()
	WritePage(w, "Orders", map[string]any{}, types.Pagination{Page: 2, Limit: 10, Total: 25, TotalPages: 3})

	body := decode(t, w)
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 3, body.Pagination.TotalPages)
	assert.EqualValues(t, 25, body.Pagination.Total)
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot change order status from delivered to pending").
		WithDetails(map[string]any{"from": "delivered"})
	WriteError(context.Background(), logger.Nop(), w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "cannot change order status from delivered to pending", body.Message)
	require.NotNil(t, body.Errors)
	assert.Equal(t, string(pkgerrors.CodeInvalidTransition), body.Errors.Code)
	assert.NotNil(t, body.Errors.Details)
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		msg    string
	}{
		"untyped":     {errors.New("boom"), http.StatusInternalServerError, "internal server error"},
		"persistence": {pkgerrors.Wrap(pkgerrors.CodePersistence, errors.New("pq: deadlock"), "create order"), http.StatusInternalServerError, "failed to persist changes"},
		"forbidden":   {pkgerrors.New(pkgerrors.CodeForbidden, "admin is not authorised to view audit logs"), http.StatusForbidden, "admin is not authorised to view audit logs"},
		"rate limit":  {pkgerrors.New(pkgerrors.CodeRateLimit, "too many submissions"), http.StatusTooManyRequests, "too many submissions"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tc.err)

			assert.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tc.msg, body.Message)
			require.NotNil(t, body.Errors)
			assert.Nil(t, body.Errors.Details)
		})
	}
}
