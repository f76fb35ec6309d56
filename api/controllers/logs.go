package controllers

import (
	"net/http"
	"strings"

	"github.com/ventech/storefront-backend/api/middleware"
	"github.com/ventech/storefront-backend/api/responses"
	"github.com/ventech/storefront-backend/api/validators"
	"github.com/ventech/storefront-backend/internal/audit"
	"github.com/ventech/storefront-backend/pkg/logger"
)

// ListAdminLogs returns the audit trail to superadmins and whitelisted admins.
func ListAdminLogs(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", audit.DefaultListLimit, 1, audit.MaxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseOptionalUUIDQuery(r, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		viewer := audit.Viewer{
			UserID:    p.UserID,
			Role:      p.Role,
			Email:     p.Email,
			IPAddress: middleware.ClientIP(r),
		}
		res, err := svc.List(r.Context(), viewer, audit.ListParams{
			Page:   page,
			Limit:  limit,
			Action: strings.TrimSpace(r.URL.Query().Get("action")),
			UserID: userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, "Admin logs fetched successfully", res.Logs, res.Pagination)
	}
}
