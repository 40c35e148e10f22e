package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. Everything comes from the
// environment so main stays lean; optional backends (postgres, redis,
// kafka) are disabled when their setting is empty.
type Config struct {
	Addr string

	// DatabaseURL enables the postgres stores. Empty means in-memory.
	DatabaseURL string

	// RedisURL enables the distributed publish lock. Empty means the
	// in-process fallback.
	RedisURL string

	// KafkaBrokers enables the audit outbox relay.
	KafkaBrokers    []string
	KafkaAuditTopic string

	// JWTSigningKey verifies bearer tokens issued by the identity
	// collaborator. Only the subject claim is consumed here.
	JWTSigningKey string

	ShutdownTimeout time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:            getenv("ADMISSIO_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("ADMISSIO_DATABASE_URL"),
		RedisURL:        os.Getenv("ADMISSIO_REDIS_URL"),
		KafkaAuditTopic: getenv("ADMISSIO_KAFKA_AUDIT_TOPIC", "admission.audit"),
		JWTSigningKey:   getenv("ADMISSIO_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		ShutdownTimeout: 10 * time.Second,
	}
	if brokers := os.Getenv("ADMISSIO_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
