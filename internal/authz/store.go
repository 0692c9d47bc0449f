package authz

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store resolves the full role set for a principal by merging the bypass
// flag, the static allow-lists, and cached database assignments.
type Store struct {
	allowlists map[Role][]string
	allowAll   bool
	repo       AssignmentRepository
	cache      *roleCache
	group      singleflight.Group
}

// NewStore constructs a Store. A nil repo disables the database source
// entirely; the store then runs in allow-list-only mode.
func NewStore(cfg Config, repo AssignmentRepository) *Store {
	return &Store{
		allowlists: normalizeAllowlists(cfg.Allowlists),
		allowAll:   cfg.AllowAll,
		repo:       repo,
		cache:      newRoleCache(cfg.CacheTTL),
	}
}

// Resolve computes the union of roles held by p. A nil principal resolves
// to the empty set. The only returnable error is an assignment lookup
// failure, which callers must surface as an internal error rather than
// treat as a denial.
func (s *Store) Resolve(ctx context.Context, p *Principal) (map[Role]struct{}, error) {
	roles := make(map[Role]struct{})
	if p == nil {
		return roles, nil
	}

	if s.allowAll {
		for _, role := range KnownRoles() {
			roles[role] = struct{}{}
		}
		return roles, nil
	}

	ids := identifiers(p)
	for role, entries := range s.allowlists {
		if allowlistGrants(entries, ids) {
			roles[role] = struct{}{}
		}
	}

	assigned, err := s.assignedRoles(ctx, canonicalID(p))
	if err != nil {
		return nil, err
	}
	for role := range assigned {
		roles[role] = struct{}{}
	}
	return roles, nil
}

// Snapshot exposes a copy of the configured allow-lists for diagnostics and
// tests. It is never consulted for runtime decisions.
func (s *Store) Snapshot() map[Role][]string {
	snapshot := make(map[Role][]string, len(s.allowlists))
	for role, entries := range s.allowlists {
		snapshot[role] = append([]string(nil), entries...)
	}
	return snapshot
}

// assignedRoles resolves database-backed grants for the canonical
// identifier, consulting the cache first. Concurrent misses for the same
// identifier collapse into a single storage read.
func (s *Store) assignedRoles(ctx context.Context, userID string) (map[Role]struct{}, error) {
	if s.repo == nil || userID == "" {
		return nil, nil
	}

	key := strings.ToLower(userID)
	now := time.Now()
	if cached, ok := s.cache.get(key, now); ok {
		return cached, nil
	}

	resolved, err, _ := s.group.Do(key, func() (any, error) {
		values, err := s.repo.ListAssignments(ctx, userID)
		if err != nil {
			return nil, err
		}
		roles := make(map[Role]struct{})
		for _, value := range values {
			for _, role := range RolesForAssignment(value) {
				roles[role] = struct{}{}
			}
		}
		s.cache.put(key, roles, time.Now())
		return roles, nil
	})
	if err != nil {
		return nil, err
	}
	// The singleflight result is shared across callers.
	return copyRoleSet(resolved.(map[Role]struct{})), nil
}
