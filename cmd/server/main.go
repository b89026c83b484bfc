// Command server runs the WhatsApp order assistant: the webhook, the direct
// intake API and the admin views over sessions and activity.
//
// @title          Order Assistant API
// @version        1.0
// @description    Conversational ordering over WhatsApp with sentiment fusion and upsell.
// @BasePath       /
// @schemes        http https
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-order-assistant/docs"
	"github.com/tbourn/go-order-assistant/internal/channel"
	"github.com/tbourn/go-order-assistant/internal/classifier"
	"github.com/tbourn/go-order-assistant/internal/commerce"
	"github.com/tbourn/go-order-assistant/internal/config"
	"github.com/tbourn/go-order-assistant/internal/dedup"
	"github.com/tbourn/go-order-assistant/internal/fusion"
	httpapi "github.com/tbourn/go-order-assistant/internal/http"
	"github.com/tbourn/go-order-assistant/internal/llm"
	"github.com/tbourn/go-order-assistant/internal/observability"
	"github.com/tbourn/go-order-assistant/internal/pipeline"
	"github.com/tbourn/go-order-assistant/internal/ratelimit"
	"github.com/tbourn/go-order-assistant/internal/repo"
	"github.com/tbourn/go-order-assistant/internal/search"
	"github.com/tbourn/go-order-assistant/internal/services"
	"github.com/tbourn/go-order-assistant/internal/session"
	"github.com/tbourn/go-order-assistant/internal/sysutil"
	"github.com/tbourn/go-order-assistant/internal/upsell"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load() // optional .env for local runs

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty, os.Stdout)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, observability.BuildInfo{Version: version, StoreID: cfg.StoreID})
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	store, rdb, err := openSessions(ctx, cfg.Session)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Session.Backend).Msg("session store")
	}
	locker := session.NewLocker()

	seen := dedup.NewDurable(db,
		dedup.NewMemory(dedup.WithMaxEntries(cfg.DedupMaxEntries), dedup.WithRetention(cfg.DedupRetention)),
		cfg.DedupRetention)
	limiter := ratelimit.New(cfg.SenderRateWindow, cfg.SenderRateMax)

	p, err := buildPipeline(cfg, pipelineDeps{db: db, store: store, locker: locker, seen: seen, limiter: limiter})
	if err != nil {
		log.Fatal().Err(err).Msg("build pipeline")
	}

	activity := services.NewActivityService(db)
	sessions := services.NewSessionService(store, locker)

	go seen.RunPurge(ctx, cfg.DedupPurgeInterval)
	go limiter.Run(ctx, cfg.SenderRateWindow)
	sweeper := &session.Sweeper{Store: store, Locker: locker, TTL: cfg.Session.IdleTTL, Interval: cfg.Session.SweepInterval}
	go sweeper.Run(ctx)

	deps := httpapi.Deps{
		Pipeline: p,
		Activity: activity,
		Sessions: sessions,
		Seen:     seen.Seen,
		Ready:    readiness(db, rdb),
	}
	if wa, ok := p.Sender.(*channel.WhatsApp); ok {
		deps.Reads = wa
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// openSessions returns the configured store. The redis client is returned
// so readiness can ping it; it is nil for the memory backend.
func openSessions(ctx context.Context, cfg config.SessionConfig) (session.Store, *redis.Client, error) {
	if cfg.Backend != "redis" {
		return session.NewMemoryStore(cfg.IdleTTL), nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return session.NewRedisStore(rdb, cfg.IdleTTL, cfg.RedisPrefix), rdb, nil
}

type pipelineDeps struct {
	db      *gorm.DB
	store   session.Store
	locker  *session.Locker
	seen    dedup.Cache
	limiter *ratelimit.SlidingWindow
}

// buildPipeline wires the optional collaborators. Each one is assigned only
// when configured so the pipeline sees a nil interface, not a nil pointer.
func buildPipeline(cfg config.Config, d pipelineDeps) (*pipeline.Pipeline, error) {
	dataset, err := classifier.DefaultDataset()
	if err != nil {
		return nil, err
	}

	var ml fusion.IntentClassifier
	if cfg.Classifier.Enabled {
		nb, err := classifier.Train(dataset, classifier.WithMinProbability(cfg.Classifier.MinProbability))
		if err != nil {
			return nil, err
		}
		ml = nb
	}

	var (
		detailed fusion.SentimentAnalyzer
		gen      upsell.CandidateGenerator
	)
	if cfg.LLM.Enabled {
		c := llm.NewClient(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: float32(cfg.LLM.Temperature),
			MaxTokens:   cfg.LLM.MaxTokens,
		})
		detailed, gen = c, c
	}

	fe := fusion.NewEngine(ml, detailed)
	fe.MLTimeout = cfg.Classifier.Timeout
	fe.DetailedTimeout = cfg.LLM.SentimentTimeout

	ue := upsell.NewEngine(gen)
	ue.GenerateTimeout = cfg.LLM.UpsellTimeout

	menu, err := search.NewIndexFromMarkdown(cfg.MenuPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.MenuPath).Msg("local menu unavailable")
	}

	p := &pipeline.Pipeline{
		Dedup:          d.seen,
		Limiter:        d.limiter,
		Sessions:       d.store,
		Locker:         d.locker,
		Fusion:         fe,
		Upsell:         ue,
		Replies:        dataset,
		Menu:           menu,
		Activity:       services.NewActivityService(d.db),
		StoreID:        cfg.StoreID,
		Timeout:        cfg.CollaboratorTimeout,
		MaxSuggestions: cfg.MaxSuggestions,
		Weather:        cfg.WeatherHint,
	}
	if cfg.Commerce.BaseURL != "" {
		cc := commerce.New(commerce.Config{
			BaseURL: cfg.Commerce.BaseURL,
			Token:   cfg.Commerce.Token,
			Timeout: cfg.Commerce.Timeout,
			MenuTTL: cfg.Commerce.MenuTTL,
		})
		p.Customers, p.Menus, p.Orders, p.Alerts = cc, cc, cc, cc
	}
	if cfg.WhatsApp.PhoneNumberID != "" && cfg.WhatsApp.Token != "" {
		p.Sender = channel.NewWhatsApp(channel.Config{
			BaseURL:       cfg.WhatsApp.BaseURL,
			APIVersion:    cfg.WhatsApp.APIVersion,
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
			Token:         cfg.WhatsApp.Token,
			Timeout:       cfg.WhatsApp.SendTimeout,
		})
	} else {
		log.Warn().Msg("whatsapp credentials missing: replies are recorded but not sent")
	}
	return p, nil
}

func readiness(db *gorm.DB, rdb *redis.Client) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	}
}
