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
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Line     LineConfig
	Queue    QueueConfig
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

// PostgresConfig holds DB connection values. An empty DSN switches the
// service to the in-memory ticket store.
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

// AuthConfig defines staff authentication parameters. AdminPasswordHash is a
// bcrypt hash; staff login is disabled when it is empty.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AdminPasswordHash     string
}

// LineConfig holds the chat-bot channel credentials and endpoints. The
// channel secret signs inbound webhooks; the access token authorizes
// outbound push and reply calls.
type LineConfig struct {
	ChannelSecret      string
	ChannelAccessToken string
	PushURL            string
	ReplyURL           string
	TimeoutSeconds     int
	DedupTTLSeconds    int
}

// QueueConfig controls queue presentation values.
type QueueConfig struct {
	StoreName string
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
			Name:                  getEnv("APP_NAME", "waitlist-service"),
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
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 480),
			AdminPasswordHash:     os.Getenv("AUTH_ADMIN_PASSWORD_HASH"),
		},
		Line: LineConfig{
			ChannelSecret:      getEnv("LINE_CHANNEL_SECRET", os.Getenv("CHANNEL_SECRET")),
			ChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", os.Getenv("CHANNEL_ACCESS_TOKEN")),
			PushURL:            getEnv("LINE_PUSH_URL", "https://api.line.me/v2/bot/message/push"),
			ReplyURL:           getEnv("LINE_REPLY_URL", "https://api.line.me/v2/bot/message/reply"),
			TimeoutSeconds:     getEnvAsInt("LINE_TIMEOUT_SECONDS", 10),
			DedupTTLSeconds:    getEnvAsInt("LINE_DEDUP_TTL_SECONDS", 3600),
		},
		Queue: QueueConfig{
			StoreName: getEnv("STORE_NAME", "Walk-in Waitlist"),
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

// Timeout returns the outbound notification call timeout.
func (l LineConfig) Timeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// DedupTTL returns how long webhook event ids are remembered.
func (l LineConfig) DedupTTL() time.Duration {
	if l.DedupTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(l.DedupTTLSeconds) * time.Second
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
