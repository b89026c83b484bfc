package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxQueryLogLength = 2048

// RedactOptions tunes AccessLog.
type RedactOptions struct {
	// MaskHeaders are logged as "[REDACTED]" in addition to the built-in
	// Authorization, Cookie, Set-Cookie and X-Hub-Signature-256.
	MaskHeaders []string
	// MaskParams are query parameters whose values are dropped entirely.
	// hub.verify_token is always masked.
	MaskParams []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// WhatsApp ids are bare E.164 digits ("5511999998888"); formatted
	// numbers are covered by the second alternative.
	phoneRE = regexp.MustCompile(`\+?\b\d{10,15}\b|\(?\b\d{2,3}\)?[ .-]\d{4,5}[ .-]\d{4}\b`)
)

// Redact replaces uuids, e-mail addresses and phone numbers in s. UUIDs go
// first so their digit runs are not mistaken for phones.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// AccessLog writes one structured line per request with customer identifiers
// scrubbed from the query and headers. It never logs bodies. The request
// scoped logger it builds is available to handlers through LoggerFrom.
func AccessLog(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization":       {},
		"cookie":              {},
		"set-cookie":          {},
		"x-hub-signature-256": {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}
	params := map[string]struct{}{"hub.verify_token": {}}
	for _, p := range opts.MaskParams {
		if p = strings.TrimSpace(p); p != "" {
			params[p] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := truncate(scrubQuery(c.Request.URL.RawQuery, params), maxQueryLogLength)

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = Redact(strings.Join(vv, ", "))
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = l.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = l.Warn()
		}
		if sender, ok := c.Get(SenderKey); ok {
			ev = ev.Str("sender", Redact(asString(sender)))
		}
		ev.
			Str("query", query).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}

func scrubQuery(raw string, params map[string]struct{}) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	for i, kv := range parts {
		k, _, _ := strings.Cut(kv, "=")
		if name, err := url.QueryUnescape(k); err == nil {
			k = name
		}
		if _, ok := params[k]; ok {
			parts[i] = k + "=[REDACTED]"
		}
	}
	return Redact(strings.Join(parts, "&"))
}
