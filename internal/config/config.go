// Package config loads the assistant's settings from environment variables,
// applies defaults and validates the result. Groups follow the collaborators
// they configure: HTTP server, storage, per-sender limits, sessions, the
// WhatsApp channel, the commerce backend, the language model and tracing.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the admin API.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SessionConfig selects and tunes the session store.
type SessionConfig struct {
	Backend       string        // SESSION_BACKEND: memory|redis
	IdleTTL       time.Duration // SESSION_IDLE_TTL
	SweepInterval time.Duration // SESSION_SWEEP_INTERVAL
	RedisAddr     string        // REDIS_ADDR
	RedisPassword string        // REDIS_PASSWORD
	RedisDB       int           // REDIS_DB
	RedisPrefix   string        // REDIS_KEY_PREFIX
}

// WhatsAppConfig configures the Cloud API channel and webhook checks.
type WhatsAppConfig struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	Token         string
	VerifyToken   string // echoed back during webhook verification
	AppSecret     string // X-Hub-Signature-256 key; empty disables the check
	SendTimeout   time.Duration
}

// CommerceConfig points at the store backend. An empty BaseURL runs the
// assistant against the local menu file without customers or orders.
type CommerceConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	MenuTTL time.Duration
}

// LLMConfig configures the OpenAI-compatible model used for detailed
// sentiment and generated upsell offers.
type LLMConfig struct {
	Enabled          bool
	BaseURL          string
	APIKey           string
	Model            string
	Temperature      float64
	MaxTokens        int
	SentimentTimeout time.Duration
	UpsellTimeout    time.Duration
}

// ClassifierConfig tunes the in-process intent classifier.
type ClassifierConfig struct {
	Enabled        bool
	Timeout        time.Duration
	MinProbability float64
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for admin API routes

	// Store
	DBPath   string // SQLite path
	MenuPath string // markdown menu used when the backend has none
	StoreID  string // default store for webhook messages

	// Edge rate limiting (per client IP)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Per-sender limits
	SenderRateWindow time.Duration
	SenderRateMax    int

	// Dedup
	DedupMaxEntries    int
	DedupRetention     time.Duration
	DedupPurgeInterval time.Duration

	// Pipeline
	CollaboratorTimeout time.Duration
	MaxSuggestions      int
	WeatherHint         string // weather for offers when the backend sends none

	Session    SessionConfig
	WhatsApp   WhatsAppConfig
	Commerce   CommerceConfig
	LLM        LLMConfig
	Classifier ClassifierConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Store
		DBPath:   getenv("DB_PATH", "assistant.db"),
		MenuPath: getenv("MENU_PATH", "data/menu.md"),
		StoreID:  getenv("STORE_ID", ""),

		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		SenderRateWindow: getdur("SENDER_RATE_WINDOW", 60*time.Second),
		SenderRateMax:    getint("SENDER_RATE_MAX", 10),

		DedupMaxEntries:    getint("DEDUP_MAX_ENTRIES", 1000),
		DedupRetention:     getdur("DEDUP_RETENTION", 24*time.Hour),
		DedupPurgeInterval: getdur("DEDUP_PURGE_INTERVAL", 10*time.Minute),

		CollaboratorTimeout: getdur("COLLABORATOR_TIMEOUT", 5*time.Second),
		MaxSuggestions:      getint("MAX_SUGGESTIONS", 2),
		WeatherHint:         getenv("WEATHER_HINT", ""),

		Session: SessionConfig{
			Backend:       strings.ToLower(getenv("SESSION_BACKEND", "memory")),
			IdleTTL:       getdur("SESSION_IDLE_TTL", 30*time.Minute),
			SweepInterval: getdur("SESSION_SWEEP_INTERVAL", time.Minute),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getint("REDIS_DB", 0),
			RedisPrefix:   getenv("REDIS_KEY_PREFIX", "assistant:session:"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:       getenv("WHATSAPP_API_URL", "https://graph.facebook.com"),
			APIVersion:    getenv("WHATSAPP_API_VERSION", "v18.0"),
			PhoneNumberID: getenv("WHATSAPP_PHONE_NUMBER_ID", ""),
			Token:         getenv("WHATSAPP_TOKEN", ""),
			VerifyToken:   getenv("WHATSAPP_VERIFY_TOKEN", ""),
			AppSecret:     getenv("WHATSAPP_APP_SECRET", ""),
			SendTimeout:   getdur("WHATSAPP_SEND_TIMEOUT", 10*time.Second),
		},
		Commerce: CommerceConfig{
			BaseURL: strings.TrimRight(getenv("BACKEND_API_URL", ""), "/"),
			Token:   getenv("BACKEND_API_TOKEN", ""),
			Timeout: getdur("BACKEND_TIMEOUT", 5*time.Second),
			MenuTTL: getdur("MENU_CACHE_TTL", 5*time.Minute),
		},
		LLM: LLMConfig{
			Enabled:          getbool("LLM_ENABLED", false),
			BaseURL:          getenv("LLM_BASE_URL", ""),
			APIKey:           getenv("LLM_API_KEY", ""),
			Model:            getenv("LLM_MODEL", "gpt-4o-mini"),
			Temperature:      getfloat("LLM_TEMPERATURE", 0.1),
			MaxTokens:        getint("LLM_MAX_TOKENS", 600),
			SentimentTimeout: getdur("LLM_SENTIMENT_TIMEOUT", 8*time.Second),
			UpsellTimeout:    getdur("LLM_UPSELL_TIMEOUT", 5*time.Second),
		},
		Classifier: ClassifierConfig{
			Enabled:        getbool("CLASSIFIER_ENABLED", true),
			Timeout:        getdur("CLASSIFIER_TIMEOUT", 2*time.Second),
			MinProbability: getfloat("CLASSIFIER_MIN_PROBABILITY", 0.3),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-order-assistant"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.SenderRateWindow <= 0 || cfg.SenderRateMax < 1 {
		return errors.New("SENDER_RATE_WINDOW must be > 0 and SENDER_RATE_MAX >= 1")
	}
	if cfg.DedupMaxEntries < 1 || cfg.DedupRetention <= 0 {
		return errors.New("DEDUP_MAX_ENTRIES must be >= 1 and DEDUP_RETENTION > 0")
	}
	if cfg.CollaboratorTimeout <= 0 {
		return errors.New("COLLABORATOR_TIMEOUT must be > 0")
	}
	if cfg.MaxSuggestions < 0 {
		return errors.New("MAX_SUGGESTIONS must be >= 0")
	}
	switch cfg.Session.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.Session.RedisAddr) == "" {
			return errors.New("REDIS_ADDR is required with SESSION_BACKEND=redis")
		}
	default:
		return errors.New("SESSION_BACKEND must be memory or redis")
	}
	if cfg.Session.IdleTTL <= 0 {
		return errors.New("SESSION_IDLE_TTL must be > 0")
	}
	if cfg.LLM.Enabled && cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
		return errors.New("LLM_ENABLED needs LLM_API_KEY or LLM_BASE_URL")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return errors.New("LLM_TEMPERATURE must be in [0,2]")
	}
	if cfg.Classifier.MinProbability < 0 || cfg.Classifier.MinProbability > 1 {
		return errors.New("CLASSIFIER_MIN_PROBABILITY must be in [0,1]")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

// getdur accepts Go durations or a plain number of seconds ("60").
func getdur(k string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
