package authz

import "strings"

// identifiers returns the lower-cased identifier set used for allow-list
// matching. Absent fields are simply omitted; a nil principal yields an
// empty set.
func identifiers(p *Principal) map[string]struct{} {
	ids := make(map[string]struct{})
	if p == nil {
		return ids
	}
	for _, raw := range []string{p.Email, p.Name, p.ID} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		ids[strings.ToLower(raw)] = struct{}{}
	}
	return ids
}

// canonicalID returns the identifier used for assignment lookups and cache
// keys: the stable ID when present, the email otherwise. Empty means the
// database source is skipped for this request.
func canonicalID(p *Principal) string {
	if p == nil {
		return ""
	}
	if id := strings.TrimSpace(p.ID); id != "" {
		return id
	}
	return strings.TrimSpace(p.Email)
}
