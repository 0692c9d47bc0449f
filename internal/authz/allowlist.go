package authz

import (
	"strings"
	"time"
)

// Wildcard marks an allow-list entry granting the role to any
// authenticated principal.
const Wildcard = "*"

// DefaultCacheTTL bounds how long a database-sourced role set is replayed
// before the next request re-reads storage.
const DefaultCacheTTL = 60 * time.Second

// Config carries the static authorization settings, built once at startup
// from process configuration and injected here so the package never reads
// the environment itself.
type Config struct {
	// Allowlists maps each role to its raw comma-separated allow-list of
	// emails, display names, ids, or the wildcard marker.
	Allowlists map[Role]string
	// AllowAll grants every known role to any authenticated principal.
	// Intended for local development only.
	AllowAll bool
	// CacheTTL overrides DefaultCacheTTL when positive.
	CacheTTL time.Duration
}

// ParseList splits a comma-separated allow-list into trimmed, lower-cased
// entries, dropping empties.
func ParseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	entries := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		entries = append(entries, part)
	}
	return entries
}

func normalizeAllowlists(raw map[Role]string) map[Role][]string {
	normalized := make(map[Role][]string, len(raw))
	for _, role := range KnownRoles() {
		if entries := ParseList(raw[role]); len(entries) > 0 {
			normalized[role] = entries
		}
	}
	return normalized
}

// allowlistGrants reports whether the configured entries for one role are
// satisfied by the given identifier set. The principal is known non-nil by
// the caller, so the wildcard short-circuits identifier comparison.
func allowlistGrants(entries []string, ids map[string]struct{}) bool {
	for _, entry := range entries {
		if entry == Wildcard {
			return true
		}
		if _, ok := ids[entry]; ok {
			return true
		}
	}
	return false
}
