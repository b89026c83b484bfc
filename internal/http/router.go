// Package httpapi assembles the gin engine: global middleware, the WhatsApp
// webhook, the intake and admin API, health, metrics and docs.
//
// Middleware order:
//  1. otelgin tracing
//  2. RequestID, AccessLog, Recovery
//  3. body cap, Prometheus metrics
//  4. IdempotencyValidator, then the edge RateLimiter (replays bypass it)
//  5. CORS and security headers
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-order-assistant/internal/config"
	"github.com/tbourn/go-order-assistant/internal/http/handlers"
	"github.com/tbourn/go-order-assistant/internal/http/middleware"
)

// Meta delivers batches of messages; keep the cap generous.
const maxBodyBytes = 1 << 20

// Deps are the application services the routes dispatch to.
type Deps struct {
	Pipeline handlers.Processor
	Activity handlers.ActivityService
	Sessions handlers.SessionService
	// Seen answers Idempotency-Key lookups; usually the dedup cache.
	Seen middleware.IdempotencyLookup
	// Ready reports dependency health for /ready. Nil means always ready.
	Ready func() error
	// Reads sends read receipts for webhook messages; nil disables them.
	Reads handlers.ReadMarker
}

// RegisterRoutes mounts everything on r.
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, d.Seen))
	r.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP()).Handler())
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStore:    true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ready", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeInternal, err.Error())
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	opts := []handlers.Option{
		handlers.WithVerifyToken(cfg.WhatsApp.VerifyToken),
		handlers.WithStoreID(cfg.StoreID),
	}
	if d.Reads != nil {
		opts = append(opts, handlers.WithReadMarker(d.Reads, cfg.WhatsApp.SendTimeout))
	}
	h := handlers.New(d.Pipeline, d.Activity, d.Sessions, opts...)

	hook := r.Group("/webhook", middleware.VerifySignature(cfg.WhatsApp.AppSecret))
	{
		hook.GET("", h.VerifyWebhook)
		hook.POST("", h.ReceiveWebhook)
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		api.POST("/messages", h.PostMessage)

		api.GET("/sessions/:sender", h.GetSession)
		api.DELETE("/sessions/:sender", h.ResetSession)

		api.GET("/activity", h.ListActivity)
		api.GET("/activity/escalations", h.Escalations)
		api.GET("/activity/messages/:message_id", h.GetActivity)
	}
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Idempotency-Replayed", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	if len(c.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowedOrigins
	}
	return cc
}

// limitBody caps request bodies; reads past maxBytes fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix treats "" and "/" as the root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
