package authz

import (
	"sync"
	"time"
)

// roleCache is the process-local, time-boxed cache of database-sourced role
// sets, keyed by lower-cased canonical identifier. It only bounds storage
// read volume; it is not a consistency mechanism. A just-granted or
// just-revoked role may take up to the TTL to be observed.
type roleCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]roleCacheEntry
}

type roleCacheEntry struct {
	roles     map[Role]struct{}
	expiresAt time.Time
}

func newRoleCache(ttl time.Duration) *roleCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &roleCache{
		ttl:     ttl,
		entries: make(map[string]roleCacheEntry),
	}
}

// get returns a copy of the cached role set for key, expiring stale entries
// as it goes. Returning a copy keeps callers from mutating cache state.
func (c *roleCache) get(key string, now time.Time) (map[Role]struct{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if now.After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return copyRoleSet(entry.roles), true
}

// put stores a freshly resolved role set. Concurrent writers may race;
// last write wins, and any of the raced values is acceptable because each
// was recomputed from the same source of truth.
func (c *roleCache) put(key string, roles map[Role]struct{}, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = roleCacheEntry{
		roles:     copyRoleSet(roles),
		expiresAt: now.Add(c.ttl),
	}
}

func copyRoleSet(roles map[Role]struct{}) map[Role]struct{} {
	out := make(map[Role]struct{}, len(roles))
	for role := range roles {
		out[role] = struct{}{}
	}
	return out
}
