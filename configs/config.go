package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Config struct {
	PostgresURI  string
	RedisURI     string
	FrontendURL  string
	ListenAddr   string
	SecretKey    string
	CookieName   string
	LogLevel     string
	LogHuman     bool
	TickSpec     string
	RetrySpec    string
	DispatchMode string
	// PublishTimeout bounds a single platform call.
	PublishTimeout    time.Duration
	WorkerConcurrency int
	TickConcurrency   int
	ConnectorBaseURL  string
	RetryPolicy       string
	RetryMaxAttempts  int
	R2                R2
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:       getEnv("POSTGRES_URI", ""),
		RedisURI:          getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:5173"),
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		SecretKey:         getEnv("SECRET_KEY", ""),
		CookieName:        getEnv("COOKIE_NAME", "contentloop_token"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogHuman:          getBool("LOG_HUMAN", false),
		TickSpec:          getEnv("TICK_SPEC", "0 * * * * *"),
		RetrySpec:         getEnv("RETRY_SPEC", "0 */5 * * * *"),
		DispatchMode:      getEnv("DISPATCH_MODE", "async"),
		PublishTimeout:    getDuration("PUBLISH_TIMEOUT", 30*time.Second),
		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 10),
		TickConcurrency:   getInt("TICK_CONCURRENCY", 5),
		ConnectorBaseURL:  getEnv("CONNECTOR_BASE_URL", "http://localhost:9090"),
		RetryPolicy:       getEnv("RETRY_POLICY", "manual"),
		RetryMaxAttempts:  getInt("RETRY_MAX_ATTEMPTS", 3),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid integer setting")
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid boolean setting")
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid duration setting")
		return defaultValue
	}
	return d
}
