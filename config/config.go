package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the service, loaded from environment
// variables with an optional .env file.
type Config struct {
	Port        string
	DatabaseURL string
	DBDriver    string // "postgres" or "sqlite"

	SessionProviderURL string
	SessionCacheTTL    time.Duration

	SearchDeadline  time.Duration
	ResultCacheTTL  time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration

	RabbitMQURL  string
	RabbitQueue  string
	RabbitPrefix string

	S3Enabled   bool
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool
	S3URLExpiry time.Duration

	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables. A .env file is
// honored when present; real environment variables take precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Port:               envOr("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBDriver:           envOr("DB_DRIVER", "postgres"),
		SessionProviderURL: os.Getenv("SESSION_PROVIDER_URL"),
		SessionCacheTTL:    envDuration("SESSION_CACHE_TTL", 5*time.Minute),
		SearchDeadline:     envDuration("SEARCH_DEADLINE", 3*time.Second),
		ResultCacheTTL:     envDuration("RESULT_CACHE_TTL", 30*time.Second),
		RateLimitMax:       envInt("RATE_LIMIT_MAX", 30),
		RateLimitWindow:    envDuration("RATE_LIMIT_WINDOW", time.Minute),
		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		RabbitQueue:        envOr("RABBITMQ_QUEUE", "conversation_updates"),
		RabbitPrefix:       envOr("RABBITMQ_QUEUE_PREFIX", "inboxsearch"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3Region:           envOr("S3_REGION", "us-east-1"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3AccessKey:        os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:        os.Getenv("S3_SECRET_KEY"),
		S3PathStyle:        envBool("S3_PATH_STYLE", false),
		S3URLExpiry:        envDuration("S3_URL_EXPIRY", 15*time.Minute),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		LogFormat:          os.Getenv("LOG_FORMAT"),
	}
	cfg.S3Enabled = cfg.S3Bucket != "" && cfg.S3AccessKey != "" && cfg.S3SecretKey != ""

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer env value, using default")
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration env value, using default")
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
