package mw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"cudorms-backend/internal/cache"
)

type cachedResponse struct {
	Status  int         `json:"status"`
	Headers http.Header `json:"headers"`
	Body    []byte      `json:"body"`
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache serves GET responses from a cache.Cache. Keys carry a
// generation that Invalidate bumps, so a response computed before a mutation
// is never found after it, even when its write lands after DeletePrefix.
type ResponseCache struct {
	store      cache.Cache
	ttl        time.Duration
	generation atomic.Uint64
}

func NewResponseCache(store cache.Cache, ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: store, ttl: ttl}
}

func (rc *ResponseCache) key(uri string) string {
	return uri + "#" + strconv.FormatUint(rc.generation.Load(), 10)
}

// Serve answers GET requests from the cache and records successful
// responses for ttl. Cache backend failures are logged and the request
// proceeds uncached.
func (rc *ResponseCache) Serve() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := rc.key(c.Request.URL.RequestURI())
		raw, found, err := rc.store.Get(c.Request.Context(), key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		if found {
			var cached cachedResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				for k, v := range cached.Headers {
					c.Writer.Header()[k] = v
				}
				c.Writer.Header().Set("X-Cache", "HIT")
				c.Writer.WriteHeader(cached.Status)
				_, _ = c.Writer.Write(cached.Body)
				c.Abort()
				return
			}
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw
		c.Writer.Header().Set("X-Cache", "MISS")

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			// Per-request headers (CORS, request id) are set again on every hit.
			headers := http.Header{}
			if ct := blw.Header().Get("Content-Type"); ct != "" {
				headers.Set("Content-Type", ct)
			}
			payload, err := json.Marshal(cachedResponse{
				Status:  blw.Status(),
				Headers: headers,
				Body:    blw.body.Bytes(),
			})
			if err == nil {
				err = rc.store.Set(c.Request.Context(), key, payload, rc.ttl)
			}
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache set failed")
			}
		}
	}
}

// Invalidate retires every cached response under prefix once a mutating
// request has succeeded.
func (rc *ResponseCache) Invalidate(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Writer.Status() >= 300 {
			return
		}
		rc.generation.Add(1)
		if err := rc.store.DeletePrefix(c.Request.Context(), prefix); err != nil {
			log.Error().Err(err).Str("prefix", prefix).Msg("cache invalidation failed")
		}
	}
}
