// Package config builds runtime configuration from the environment so main
// stays lean. Development defaults let the server boot with nothing set.
package config

import (
	"os"
	"strings"
	"time"

	"quizforge/internal/auth/token"
)

// Server captures everything cmd/server needs to wire the process.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string
	TokenIssuer   string
	TokenTTL      time.Duration
	CookieSecure  bool
	AIEndpoint    string
	AIKey         string
}

// FromEnv reads QUIZFORGE_* variables with development fallbacks. The JWT
// signing key default exists only so local runs work; production must
// override it.
func FromEnv() Server {
	cfg := Server{
		Addr:          envOr("QUIZFORGE_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("QUIZFORGE_DATABASE_URL"),
		RedisURL:      os.Getenv("QUIZFORGE_REDIS_URL"),
		AuditTopic:    envOr("QUIZFORGE_AUDIT_TOPIC", "audit.events"),
		JWTSigningKey: envOr("QUIZFORGE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenIssuer:   envOr("QUIZFORGE_TOKEN_ISSUER", "quizforge"),
		TokenTTL:      token.DefaultTTL,
		CookieSecure:  os.Getenv("QUIZFORGE_COOKIE_SECURE") == "true",
		AIEndpoint: envOr("QUIZFORGE_AI_ENDPOINT",
			"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"),
		AIKey: os.Getenv("QUIZFORGE_AI_KEY"),
	}

	if raw := os.Getenv("QUIZFORGE_TOKEN_TTL"); raw != "" {
		if ttl, err := time.ParseDuration(raw); err == nil && ttl > 0 {
			cfg.TokenTTL = ttl
		}
	}
	if raw := os.Getenv("QUIZFORGE_KAFKA_BROKERS"); raw != "" {
		for _, broker := range strings.Split(raw, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
