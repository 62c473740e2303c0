package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cibounipi/mensabot/internal/domain/providers"
	"github.com/cibounipi/mensabot/internal/infrastructure/observability"
)

// CacheConfig holds cache configuration for specific routes
type CacheConfig struct {
	TTLSeconds int
	Enabled    bool
}

// ScopeFunc returns the key namespace of the data currently served. false
// means nothing can be cached.
type ScopeFunc func() (string, bool)

// CacheMiddleware caches rendered GET responses. Keys live under the scope
// returned by ScopeFunc, so a snapshot swap never serves a stale render.
type CacheMiddleware struct {
	cache        providers.CacheProvider
	scope        ScopeFunc
	metrics      *observability.Metrics
	routeConfigs map[string]CacheConfig
}

// NewCacheMiddleware creates a cache middleware for the render routes.
// Routes whose output depends on the wall clock (opening status) are not
// cached.
func NewCacheMiddleware(cache providers.CacheProvider, scope ScopeFunc, ttlSeconds int, metrics *observability.Metrics) *CacheMiddleware {
	return &CacheMiddleware{
		cache:   cache,
		scope:   scope,
		metrics: metrics,
		routeConfigs: map[string]CacheConfig{
			"/api/menu":               {TTLSeconds: ttlSeconds, Enabled: true},
			"/api/dishes/occurrences": {TTLSeconds: ttlSeconds, Enabled: true},
			"/api/dishes/search":      {TTLSeconds: ttlSeconds, Enabled: true},
			"/api/rates":              {TTLSeconds: ttlSeconds, Enabled: true},
		},
	}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		config := m.getRouteConfig(r.URL.Path)
		if !config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		scope, ok := m.scope()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		cacheKey := m.generateCacheKey(scope, r)

		if cached, err := m.cache.Get(r.Context(), cacheKey); err == nil {
			log.Debug().Str("key", cacheKey).Msg("Cache HIT")
			m.recordHit(r, true)
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}

		log.Debug().Str("key", cacheKey).Msg("Cache MISS")
		m.recordHit(r, false)
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		// Only cache successful responses
		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if err := m.cache.Set(r.Context(), cacheKey, recorder.body.Bytes(), config.TTLSeconds); err != nil {
				log.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache response")
			}
		}
	})
}

func (m *CacheMiddleware) recordHit(r *http.Request, hit bool) {
	if m.metrics == nil {
		return
	}
	if hit {
		observability.RecordCacheHit(r.Context(), m.metrics, r.URL.Path)
	} else {
		observability.RecordCacheMiss(r.Context(), m.metrics, r.URL.Path)
	}
}

// getRouteConfig gets the cache configuration for a route
func (m *CacheMiddleware) getRouteConfig(path string) CacheConfig {
	if config, exists := m.routeConfigs[strings.TrimSuffix(path, "/")]; exists {
		return config
	}
	return CacheConfig{Enabled: false}
}

// generateCacheKey hashes method, path and query under the scope
func (m *CacheMiddleware) generateCacheKey(scope string, r *http.Request) string {
	key := fmt.Sprintf("%s:%s", r.Method, r.URL.Path)
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.Query().Encode()
	}

	hash := sha256.Sum256([]byte(key))
	return scope + ":" + hex.EncodeToString(hash[:])
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

// WriteHeader captures the status code
func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

// Write captures the response body and writes to the client
func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
