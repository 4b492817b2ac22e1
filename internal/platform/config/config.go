// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production overrides
// them through the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"onboard/internal/workflow"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// Backend selects the execution store: "memory", "postgres" or "redis".
	Backend     string
	PostgresDSN string
	Redis       RedisConfig

	// KafkaBrokers enables audit streaming when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	Timeouts workflow.Timeouts
}

// RedisConfig captures Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envString("ONBOARD_ADDR", ":8080"),
		JWTSigningKey: envString("ONBOARD_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envString("ONBOARD_JWT_ISSUER", "onboard"),
		JWTAudience:   envString("ONBOARD_JWT_AUDIENCE", "onboard-api"),
		Backend:       envString("ONBOARD_STORE_BACKEND", "memory"),
		PostgresDSN:   os.Getenv("ONBOARD_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("ONBOARD_REDIS_URL"),
			PoolSize:     envInt("ONBOARD_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("ONBOARD_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("ONBOARD_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("ONBOARD_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("ONBOARD_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers: envList("ONBOARD_KAFKA_BROKERS"),
		AuditTopic:   envString("ONBOARD_AUDIT_TOPIC", "onboard.audit"),
		Timeouts: workflow.Timeouts{
			Identity:     envDuration("ONBOARD_IDENTITY_TIMEOUT", 30*time.Second),
			BankLink:     envDuration("ONBOARD_BANK_LINK_TIMEOUT", 30*time.Second),
			Verification: envDuration("ONBOARD_VERIFICATION_TIMEOUT", 30*time.Second),
			Decision:     envDuration("ONBOARD_DECISION_TIMEOUT", 10*time.Second),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
