package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every env-tunable knob. Durations are read as integer
// milliseconds so .env files stay unit-free.
type Config struct {
	Env      string
	LogLevel string

	// API
	Port        string
	DatabaseURL string

	// Quote pipeline
	QuoteProvider    string
	QuoteCacheTTL    time.Duration
	FailThreshold    int
	FailWindow       time.Duration
	Cooldown         time.Duration
	QuoteHTTPTimeout time.Duration
	FakeQuotePrice   float64

	// Worker
	SweepInterval   time.Duration
	SweepCurrencies []string

	// Idempotency
	IdemBackend   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:              envOr("ENV", "local"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		Port:             envOr("PORT", "8080"),
		DatabaseURL:      envOr("DATABASE_URL", ""),
		QuoteProvider:    envOr("QUOTE_PROVIDER", "live"),
		QuoteCacheTTL:    msDur("QUOTE_CACHE_TTL_MS", 30000),
		FailThreshold:    intOr("QUOTE_FAIL_THRESHOLD", 3),
		FailWindow:       msDur("QUOTE_FAIL_WINDOW_MS", 60000),
		Cooldown:         msDur("QUOTE_COOLDOWN_MS", 120000),
		QuoteHTTPTimeout: msDur("QUOTE_HTTP_TIMEOUT_MS", 10000),
		FakeQuotePrice:   floatOr("FAKE_QUOTE_PRICE", 100),
		SweepInterval:    msDur("SWEEP_INTERVAL_MS", 600000),
		SweepCurrencies:  csv(envOr("SWEEP_CURRENCIES", "CNY,USD,HKD")),
		IdemBackend:      envOr("IDEMPOTENCY_BACKEND", "redis"),
		RedisAddr:        envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    envOr("REDIS_PASSWORD", ""),
		RedisDB:          intOr("REDIS_DB", 0),
		RedisTTL:         msDur("IDEMPOTENCY_TTL_MS", 86400000),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	if i, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return i
	}
	return def
}

func floatOr(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}

func msDur(key string, defMS int) time.Duration {
	return time.Duration(intOr(key, defMS)) * time.Millisecond
}

func csv(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
