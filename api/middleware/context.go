package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/auth"
	"github.com/ventech/storefront-backend/pkg/enums"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// Principal is the authenticated caller derived from a verified access token.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   enums.Role
}

func principalFromClaims(claims *auth.AccessTokenClaims) Principal {
	return Principal{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
}

// WithPrincipal stores the caller on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFromContext returns the caller and whether one was authenticated.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok && p.UserID != uuid.Nil
}

func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.Role {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}
