package cache

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cibounipi/mensabot/internal/domain/providers"
)

// MemoryAdapter is an in-process CacheProvider used when Redis is disabled.
// Entries share a single TTL fixed at construction.
type MemoryAdapter struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryAdapter creates a bounded in-memory cache
func NewMemoryAdapter(size int, ttl time.Duration) providers.CacheProvider {
	return &MemoryAdapter{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := a.lru.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return value, nil
}

// Set stores a value; the expiration argument is ignored
func (a *MemoryAdapter) Set(_ context.Context, key string, value []byte, _ int) error {
	a.lru.Add(key, value)
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	a.lru.Remove(key)
	return nil
}

// DeletePattern removes every key matching a glob pattern
func (a *MemoryAdapter) DeletePattern(_ context.Context, pattern string) error {
	for _, key := range a.lru.Keys() {
		if matchGlob(pattern, key) {
			a.lru.Remove(key)
		}
	}
	return nil
}

// matchGlob follows Redis SCAN MATCH semantics for the patterns used here:
// unlike path.Match, "*" also spans "/".
func matchGlob(pattern, key string) bool {
	prefix, wildcard := strings.CutSuffix(pattern, "*")
	if wildcard && !strings.ContainsAny(prefix, "*?[") {
		return strings.HasPrefix(key, prefix)
	}
	ok, _ := path.Match(pattern, key)
	return ok
}
