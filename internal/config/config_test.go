package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_DefaultsAreValid(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
	if cfg.SenderRateWindow != time.Minute || cfg.SenderRateMax != 10 {
		t.Fatalf("sender limits unexpected: %v/%d", cfg.SenderRateWindow, cfg.SenderRateMax)
	}
	if cfg.DedupMaxEntries != 1000 || cfg.Session.IdleTTL != 30*time.Minute || cfg.Session.Backend != "memory" {
		t.Fatalf("dedup/session defaults unexpected: %+v", cfg)
	}
	if cfg.WhatsApp.APIVersion != "v18.0" || cfg.LLM.Enabled || !cfg.Classifier.Enabled {
		t.Fatalf("collaborator defaults unexpected: %+v %+v %+v", cfg.WhatsApp, cfg.LLM, cfg.Classifier)
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_Overrides(t *testing.T) {
	// Server
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // normalizes to "release"

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v2/")

	// Store + limits
	t.Setenv("DB_PATH", "db.sqlite")
	t.Setenv("MENU_PATH", "menu.md")
	t.Setenv("STORE_ID", "loja-1")
	t.Setenv("RATE_RPS", "x") // falls back to default
	t.Setenv("RATE_BURST", "nope")
	t.Setenv("SENDER_RATE_WINDOW", "30") // plain seconds
	t.Setenv("SENDER_RATE_MAX", "5")
	t.Setenv("DEDUP_MAX_ENTRIES", "50")
	t.Setenv("WEATHER_HINT", "chuva")

	// Collaborators
	t.Setenv("SESSION_BACKEND", "REDIS")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("WHATSAPP_TOKEN", "tok")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123")
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "verify")
	t.Setenv("BACKEND_API_URL", "http://backend:3000/")
	t.Setenv("MENU_CACHE_TTL", "300")
	t.Setenv("LLM_ENABLED", "true")
	t.Setenv("LLM_BASE_URL", "http://ollama:11434/v1")
	t.Setenv("LLM_MODEL", "llama3")

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DBPath != "db.sqlite" || cfg.MenuPath != "menu.md" || cfg.StoreID != "loja-1" {
		t.Fatalf("store fields unexpected: %+v", cfg)
	}
	if cfg.RateRPS != 20.0 || cfg.RateBurst != 40 {
		t.Fatalf("edge rate limiting unexpected: %v/%d", cfg.RateRPS, cfg.RateBurst)
	}
	if cfg.SenderRateWindow != 30*time.Second || cfg.SenderRateMax != 5 || cfg.DedupMaxEntries != 50 || cfg.WeatherHint != "chuva" {
		t.Fatalf("sender limits unexpected: %+v", cfg)
	}
	if cfg.Session.Backend != "redis" || cfg.Session.RedisAddr != "redis:6379" || cfg.Session.RedisDB != 2 {
		t.Fatalf("session unexpected: %+v", cfg.Session)
	}
	if cfg.WhatsApp.Token != "tok" || cfg.WhatsApp.PhoneNumberID != "123" || cfg.WhatsApp.VerifyToken != "verify" {
		t.Fatalf("whatsapp unexpected: %+v", cfg.WhatsApp)
	}
	if cfg.Commerce.BaseURL != "http://backend:3000" || cfg.Commerce.MenuTTL != 5*time.Minute {
		t.Fatalf("commerce unexpected: %+v", cfg.Commerce)
	}
	if !cfg.LLM.Enabled || cfg.LLM.Model != "llama3" || cfg.LLM.BaseURL != "http://ollama:11434/v1" {
		t.Fatalf("llm unexpected: %+v", cfg.LLM)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name, key, val, want string
	}{
		{"invalid LOG_LEVEL", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"empty PORT", "PORT", "   ", "PORT must not be empty"},
		{"non-positive timeouts", "READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"max header bytes", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"empty DB_PATH", "DB_PATH", "   ", "DB_PATH must not be empty"},
		{"rate rps negative", "RATE_RPS", "-1", "RATE_RPS"},
		{"rate burst < 1", "RATE_BURST", "0", "RATE_BURST"},
		{"sender max < 1", "SENDER_RATE_MAX", "0", "SENDER_RATE_MAX"},
		{"dedup ceiling < 1", "DEDUP_MAX_ENTRIES", "0", "DEDUP_MAX_ENTRIES"},
		{"collaborator timeout", "COLLABORATOR_TIMEOUT", "0s", "COLLABORATOR_TIMEOUT"},
		{"negative suggestions", "MAX_SUGGESTIONS", "-1", "MAX_SUGGESTIONS"},
		{"unknown session backend", "SESSION_BACKEND", "etcd", "SESSION_BACKEND"},
		{"session ttl", "SESSION_IDLE_TTL", "0s", "SESSION_IDLE_TTL"},
		{"llm without endpoint", "LLM_ENABLED", "true", "LLM_ENABLED"},
		{"llm temperature", "LLM_TEMPERATURE", "3", "LLM_TEMPERATURE"},
		{"classifier probability", "CLASSIFIER_MIN_PROBABILITY", "2", "CLASSIFIER_MIN_PROBABILITY"},
		{"hsts max age negative", "HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"otel sample ratio", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}

	t.Run("redis without address", func(t *testing.T) {
		t.Setenv("SESSION_BACKEND", "redis")
		t.Setenv("REDIS_ADDR", " ")
		if _, err := Load(); err == nil || !containsErr(err, "REDIS_ADDR") {
			t.Fatalf("expected REDIS_ADDR validation error, got: %v", err)
		}
	})
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_SECONDS", " 90 ")
	if getdur("D_SECONDS", time.Second) != 90*time.Second {
		t.Fatalf("getdur plain seconds failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		t.Setenv("B_T", v)
		if !getbool("B_T", false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for _, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		t.Setenv("B_F", v)
		if getbool("B_F", true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV mismatch: got %#v", got)
	}

	for in, want := range map[string]string{"": "/", "v1": "/v1", "/v1/": "/v1", " / ": "/"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Exit(m.Run())
}

func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
