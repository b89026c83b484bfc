package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HeaderIdempotencyKey carries the caller's message id on the intake API.
// Resending with the same key replays the recorded outcome.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:=]+$`)

// IdempotencyOptions validates the header. Zero values pick defaults.
type IdempotencyOptions struct {
	MaxLen  int            // 200
	Pattern *regexp.Regexp // token characters plus ":" and "="
}

// IdempotencyLookup reports whether key was already processed. Lookup errors
// are logged and treated as "not seen".
type IdempotencyLookup func(ctx context.Context, key string) (bool, error)

// GetIdempotencyKey returns the validated key, if the request had one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the key was already processed.
func IsReplay(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyIdemReplay)
	b, _ := v.(bool)
	return b
}

// IdempotencyValidator checks the Idempotency-Key header and, when lookup
// finds it, marks the request as a replay so RateLimiter lets it through and
// the handler can answer from the record. Requests without the header pass
// untouched; a malformed key is rejected with 400.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_request",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			seen, err := lookup(c.Request.Context(), key)
			if err != nil {
				log.Warn().Err(err).Msg("idempotency lookup failed")
			}
			if seen {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
