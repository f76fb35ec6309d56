package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/api/middleware"
	"github.com/ventech/storefront-backend/internal/orders"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
)

func requirePrincipal(r *http.Request) (middleware.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return middleware.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}

// actorFromRequest is the zero Actor for anonymous callers.
func actorFromRequest(r *http.Request) orders.Actor {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return orders.Actor{}
	}
	return orders.Actor{UserID: p.UserID, Role: p.Role}
}

func userIDPtr(r *http.Request) *uuid.UUID {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	id := p.UserID
	return &id
}
