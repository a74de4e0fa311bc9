package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"storefront/apperr"
)

type Config struct {
	Port            string
	MongoURI        string
	MongoDB         string
	JWTSecret       string
	TokenTTL        time.Duration
	BcryptCost      int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	StripeSecretKey string
	StripeAPIBase   string
	CORSOrigins     []string
	QueryTimeout    time.Duration
	SummaryCacheTTL time.Duration
	LogLevel        slog.Level
}

// Load reads .env (if present) and the process environment. JWT_SECRET is
// the only required variable.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found; using system environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(k, d string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return d
	}
	envInt := func(k string, d int) int {
		if n, err := strconv.Atoi(env(k, "")); err == nil {
			return n
		}
		return d
	}
	envDur := func(k string, d time.Duration) time.Duration {
		if dur, err := time.ParseDuration(env(k, "")); err == nil {
			return dur
		}
		return d
	}

	cfg := &Config{
		Port:            env("PORT", "8080"),
		MongoURI:        env("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:         env("MONGODB_DB", "storefront"),
		JWTSecret:       getenv("JWT_SECRET"),
		TokenTTL:        envDur("TOKEN_TTL", 30*24*time.Hour),
		BcryptCost:      envInt("BCRYPT_COST", bcrypt.DefaultCost),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),
		StripeSecretKey: getenv("STRIPE_SECRET_KEY"),
		StripeAPIBase:   env("STRIPE_API_BASE", "https://api.stripe.com"),
		CORSOrigins:     splitList(env("CORS_ORIGINS", "*")),
		QueryTimeout:    envDur("QUERY_TIMEOUT", 10*time.Second),
		SummaryCacheTTL: envDur("SUMMARY_CACHE_TTL", 30*time.Second),
		LogLevel:        parseLevel(env("LOG_LEVEL", "info")),
	}

	if cfg.JWTSecret == "" {
		return nil, apperr.New(apperr.Configuration, "JWT_SECRET must be set")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, apperr.Newf(apperr.Configuration, "BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.TokenTTL <= 0 {
		return nil, apperr.New(apperr.Configuration, "TOKEN_TTL must be positive")
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 10 * time.Second
	}
	if !strings.HasPrefix(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
