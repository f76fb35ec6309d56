package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/ventech/storefront-backend/internal/audit"
)

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// AdminAudit appends one audit entry per request once the handler has
// written its response. The write never alters the response.
func AdminAudit(action string, recorder auditRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			entry := audit.Entry{
				Action:     action,
				StatusCode: rec.statusOrOK(),
				Duration:   time.Since(start),
				IPAddress:  ClientIP(r),
				Metadata: map[string]any{
					"method": r.Method,
					"path":   r.URL.Path,
				},
			}
			if p, ok := PrincipalFromContext(r.Context()); ok {
				userID := p.UserID
				entry.UserID = &userID
				entry.Role = p.Role
			}
			recorder.Record(r.Context(), entry)
		})
	}
}
