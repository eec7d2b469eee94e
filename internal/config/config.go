package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	DatabaseURL     string
	RedisAddr       string
	KVBackend       string
	KVPath          string
	QueueBackend    string
	JWTIssuer       string
	JWTSigningKey   string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RateLimitPerMin int
	SeedDemo        bool
}

// Load returns application config populated from environment variables with
// sensible defaults. A .env file in the working directory is honored when
// present.
func Load() App {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not load .env file")
	}

	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8082"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KVBackend:       getEnv("KV_BACKEND", "file"),
		KVPath:          getEnv("KV_PATH", "data/kv"),
		QueueBackend:    getEnv("QUEUE_BACKEND", "memory"),
		JWTIssuer:       getEnv("JWT_ISSUER", "campus-events"),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:       durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:      durationEnv("REFRESH_TTL", 24*time.Hour),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
		SeedDemo:        boolEnv("SEED_DEMO", true),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Warnf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Warnf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Warnf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
