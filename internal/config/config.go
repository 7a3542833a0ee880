package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Webhook   WebhookConfig
	Queue     QueueConfig
	Archive   ArchiveConfig
	Retention RetentionConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines operator token parameters for the read/admin API.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// WebhookConfig governs inbound signature verification.
type WebhookConfig struct {
	SharedSecret string
	// RequireSignature rejects unsigned deliveries. Default is permissive:
	// unsigned payloads are accepted with a warning.
	RequireSignature bool
}

// QueueConfig controls the validated-event work queue.
type QueueConfig struct {
	Name            string
	PollTimeoutSec  int
	RequeueDelaySec int
}

// ArchiveConfig locates the raw payload archive.
type ArchiveConfig struct {
	RootDir string
}

// RetentionConfig parameterizes the retention rule.
type RetentionConfig struct {
	Days int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "locate-ingest"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Webhook: WebhookConfig{
			SharedSecret:     os.Getenv("WEBHOOK_SHARED_SECRET"),
			RequireSignature: getEnvAsBool("WEBHOOK_REQUIRE_SIGNATURE", false),
		},
		Queue: QueueConfig{
			Name:            getEnv("QUEUE_NAME", "locate-ingest:events"),
			PollTimeoutSec:  getEnvAsInt("QUEUE_POLL_TIMEOUT_SECONDS", 5),
			RequeueDelaySec: getEnvAsInt("QUEUE_REQUEUE_DELAY_SECONDS", 1),
		},
		Archive: ArchiveConfig{
			RootDir: getEnv("ARCHIVE_ROOT_DIR", "data/raw"),
		},
		Retention: RetentionConfig{
			Days: getEnvAsInt("RETENTION_DAYS", 30),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PollTimeout returns the queue blocking-pop timeout.
func (q QueueConfig) PollTimeout() time.Duration {
	if q.PollTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(q.PollTimeoutSec) * time.Second
}

// RequeueDelay returns the pause before re-enqueueing a transiently failed message.
func (q QueueConfig) RequeueDelay() time.Duration {
	if q.RequeueDelaySec < 0 {
		return 0
	}
	return time.Duration(q.RequeueDelaySec) * time.Second
}

// Window returns the retention window as a duration.
func (r RetentionConfig) Window() time.Duration {
	days := r.Days
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
