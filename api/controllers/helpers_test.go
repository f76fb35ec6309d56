package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/ventech/storefront-backend/api/middleware"
	"github.com/ventech/storefront-backend/pkg/enums"
	"github.com/ventech/storefront-backend/pkg/types"
)

type envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       json.RawMessage   `json:"data"`
	Errors     *types.APIError   `json:"errors"`
	Pagination *types.Pagination `json:"pagination"`
}

type requestOpt func(*http.Request) *http.Request

func asPrincipal(id uuid.UUID, role enums.Role) requestOpt {
	return func(r *http.Request) *http.Request {
		return r.WithContext(middleware.WithPrincipal(r.Context(), middleware.Principal{
			UserID: id,
			Email:  "shopper@ventech.com",
			Role:   role,
		}))
	}
}

func withParam(key, value string) requestOpt {
	return func(r *http.Request) *http.Request {
		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			rctx = chi.NewRouteContext()
			r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
		}
		rctx.URLParams.Add(key, value)
		return r
	}
}

func call(t *testing.T, h http.HandlerFunc, method, target, body string, opts ...requestOpt) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for _, opt := range opts {
		req = opt(req)
	}
	w := httptest.NewRecorder()
	h(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}
