package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to its rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByClientIP buckets requests by client address.
func KeyByClientIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

// KeyByHeaderOrIP buckets by the named header when present, else by IP.
// Useful behind a gateway that forwards a client id header.
func KeyByHeaderOrIP(name string) KeyFunc {
	return func(c *gin.Context) string {
		if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
			return "hdr:" + v
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token bucket guarding the HTTP edge. It is a
// coarse flood guard; the per-sender conversation limit lives in the
// pipeline.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc
	idle  time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups uint64
}

// NewRateLimiter allows rps tokens per second with the given burst per key.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByClientIP()
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		idle:    10 * time.Minute,
		buckets: make(map[string]*bucket),
	}
}

// limiter returns the bucket for key. Every 4096 lookups idle buckets are
// dropped first, so a stale bucket is never refreshed by its own lookup.
func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups%4096 == 0 {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idle {
				delete(rl.buckets, k)
			}
		}
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// Handler enforces the limit. Idempotent replays flagged by
// IdempotencyValidator pass without spending a token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.limiter(rl.keyFn(c), time.Now()).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}

// IsRateBypass reports whether the request was marked as a replay.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}
