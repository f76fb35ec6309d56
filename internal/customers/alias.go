package customers

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultFallbackEmail routes guest aliases when no fallback is configured.
const DefaultFallbackEmail = "support@ventechgadgets.com"

var aliasLocalRe = regexp.MustCompile(`[^a-zA-Z0-9.+_-]`)

// AliasFunc returns the 8-hex suffix used for a synthesized guest email.
type AliasFunc func() string

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// guestAlias derives "{local}+{suffix}@{domain}" from the fallback address and
// returns the fallback actually used alongside the alias.
func guestAlias(fallback, suffix string) (primary, alias string) {
	primary = strings.TrimSpace(fallback)
	local, domain, ok := strings.Cut(primary, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		primary = DefaultFallbackEmail
		local, domain, _ = strings.Cut(primary, "@")
	}

	local = aliasLocalRe.ReplaceAllString(local, "")
	if local == "" {
		local = "support"
	}
	return primary, strings.ToLower(local + "+" + suffix + "@" + domain)
}
