// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// response.go provides a Valkey-backed cache of public JSON responses.
// Successful GET responses are keyed by a digest of the request URI so repeated listings
// skip the database; any successful write through the same routes clears
// the whole cache, since a post change can affect every listing.
package cache

import (
	"bytes"
	"context"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"sebencms/internal/metrics"
)

const (
	// responseKeyPrefix is the Valkey key prefix for cached responses.
	responseKeyPrefix = "api:"

	// DefaultResponseTTL is how long a response stays cached.
	DefaultResponseTTL = 5 * time.Minute
)

// ResponseCache manages API response caching in Valkey.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponseCache creates a new response cache backed by the given
// Valkey client.
func NewResponseCache(client *redis.Client, ttl time.Duration) *ResponseCache {
	if ttl == 0 {
		ttl = DefaultResponseTTL
	}
	return &ResponseCache{client: client, ttl: ttl}
}

// Get retrieves a cached body. Errors are logged and treated as a miss.
func (rc *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := rc.client.Get(ctx, responseKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("response cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("response cache hit", "key", key)
	return val, true
}

// Set stores a body with the configured TTL.
func (rc *ResponseCache) Set(ctx context.Context, key string, body []byte) {
	if err := rc.client.Set(ctx, responseKeyPrefix+key, body, rc.ttl).Err(); err != nil {
		slog.Warn("response cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes all cached responses by scanning for the prefix.
func (rc *ResponseCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := rc.client.Scan(ctx, cursor, responseKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("response cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("response cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("response cache cleared", "deleted", deleted)
	}
}

// Middleware serves cached GET responses and stores fresh 200 responses.
// Other methods pass through and clear the cache when they succeed. A nil
// cache disables caching.
func (rc *ResponseCache) Middleware(next http.Handler) http.Handler {
	if rc == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status < 400 {
				rc.InvalidateAll(r.Context())
			}
			return
		}

		key := requestKey(r)
		if body, ok := rc.Get(r.Context(), key); ok {
			metrics.CacheHit()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.Write(body)
			return
		}

		metrics.CacheMiss()
		rec := &recorder{ResponseWriter: w, status: http.StatusOK, capture: true}
		w.Header().Set("X-Cache", "MISS")
		next.ServeHTTP(rec, r)
		if rec.status == http.StatusOK {
			rc.Set(r.Context(), key, rec.buf.Bytes())
		}
	})
}

// requestKey digests the request URI so arbitrarily long query strings
// map onto fixed-size Valkey keys.
func requestKey(r *http.Request) string {
	sum := blake2b.Sum256([]byte(r.URL.RequestURI()))
	return hex.EncodeToString(sum[:])
}

// recorder passes a response through while noting its status and,
// optionally, keeping a copy of the body.
type recorder struct {
	http.ResponseWriter
	status  int
	capture bool
	buf     bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.capture {
		r.buf.Write(b)
	}
	return r.ResponseWriter.Write(b)
}
