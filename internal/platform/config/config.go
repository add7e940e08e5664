package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"trrhub/internal/assist"
)

// Config captures everything the server needs from the environment so
// main stays lean.
type Config struct {
	Addr          string
	JWTSigningKey string

	// PostgresURL is empty when running on in-memory stores.
	PostgresURL string
	// RedisURL enables the shared suggestion cache when set.
	RedisURL string
	// KafkaBrokers enables the timeline event sink when non-empty.
	KafkaBrokers []string

	OpenAIKey   string
	OpenAIModel string

	AssistQuota  int
	AssistWindow time.Duration
	AssistTTL    time.Duration
	AssistSweep  time.Duration
}

// FromEnv builds the config from environment variables, filling in
// documented defaults for everything optional.
func FromEnv() Config {
	addr := os.Getenv("TRRHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("TRRHUB_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("TRRHUB_KAFKA_BROKERS"); raw != "" {
		for _, broker := range strings.Split(raw, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
	}

	return Config{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		PostgresURL:   os.Getenv("TRRHUB_POSTGRES_URL"),
		RedisURL:      os.Getenv("TRRHUB_REDIS_URL"),
		KafkaBrokers:  brokers,
		OpenAIKey:     os.Getenv("TRRHUB_OPENAI_KEY"),
		OpenAIModel:   os.Getenv("TRRHUB_OPENAI_MODEL"),
		AssistQuota:   intFromEnv("TRRHUB_ASSIST_QUOTA", assist.DefaultQuota),
		AssistWindow:  durationFromEnv("TRRHUB_ASSIST_WINDOW", assist.DefaultWindow),
		AssistTTL:     durationFromEnv("TRRHUB_ASSIST_CACHE_TTL", assist.DefaultTTL),
		AssistSweep:   durationFromEnv("TRRHUB_ASSIST_CACHE_SWEEP", assist.DefaultSweepInterval),
	}
}

func intFromEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
