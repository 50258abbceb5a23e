// Package cache holds the shared short-TTL result cache. There is no active
// invalidation: callers may see results up to one TTL stale.
package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ResultCache stores full search response payloads keyed by the request
// tuple. Safe for concurrent use.
type ResultCache struct {
	c *gocache.Cache
}

// New builds a ResultCache with the given TTL. Expired entries are swept at
// twice the TTL.
func New(ttl time.Duration) *ResultCache {
	return &ResultCache{c: gocache.New(ttl, 2*ttl)}
}

// Key derives the cache key from everything that changes a response:
// caller, query text, search type, pagination and the archived flag.
func Key(callerID, query, searchType string, limit, offset int, includeArchived bool) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%t", callerID, query, searchType, limit, offset, includeArchived)
}

// Get returns the cached payload for key, if present and unexpired.
func (rc *ResultCache) Get(key string) (interface{}, bool) {
	return rc.c.Get(key)
}

// Set stores a payload under key for the configured TTL.
func (rc *ResultCache) Set(key string, payload interface{}) {
	rc.c.Set(key, payload, gocache.DefaultExpiration)
}

// Flush drops every entry. Used by tests.
func (rc *ResultCache) Flush() {
	rc.c.Flush()
}
