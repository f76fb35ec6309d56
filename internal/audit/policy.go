package audit

import (
	"strings"

	"github.com/ventech/storefront-backend/pkg/enums"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
)

// Policy decides who may read the audit trail. Superadmins always may;
// admins only when their email is whitelisted.
type Policy struct {
	whitelist map[string]struct{}
}

// NewPolicy builds a policy from configured emails, compared case-insensitively.
func NewPolicy(emails []string) *Policy {
	whitelist := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if normalized := normalizeEmail(email); normalized != "" {
			whitelist[normalized] = struct{}{}
		}
	}
	return &Policy{whitelist: whitelist}
}

func (p *Policy) Whitelisted(email string) bool {
	if p == nil {
		return false
	}
	_, ok := p.whitelist[normalizeEmail(email)]
	return ok
}

// CanViewLogs returns nil when the caller may list audit entries.
func (p *Policy) CanViewLogs(viewer Viewer) error {
	switch viewer.Role {
	case "":
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	case enums.RoleSuperAdmin:
		return nil
	case enums.RoleAdmin:
		if p.Whitelisted(viewer.Email) {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin is not authorised to view audit logs")
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
