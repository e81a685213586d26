package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "rekam/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	MigrateOnStart  bool

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Identity IdentityConfig
}

// DatabaseConfig configures the PostgreSQL pool. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the profile cache. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit sink. No brokers disables it.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// IdentityConfig tunes actor resolution.
type IdentityConfig struct {
	ProfileCacheTTL time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:            envString("REKAM_ADDR", ":8080"),
		JWTSigningKey:   jwtSigningKey,
		JWTIssuer:       os.Getenv("JWT_ISSUER"),
		RequestTimeout:  envDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        envString("LOG_LEVEL", "info"),
		MigrateOnStart:  envBool("MIGRATE_ON_START", true),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    envList("KAFKA_BROKERS"),
			AuditTopic: envString("KAFKA_AUDIT_TOPIC", "rekam.audit"),
		},
		Identity: IdentityConfig{
			ProfileCacheTTL: envDuration("PROFILE_CACHE_TTL", 5*time.Minute),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envList(key string) []string {
	return platformstrings.SplitList(os.Getenv(key))
}
