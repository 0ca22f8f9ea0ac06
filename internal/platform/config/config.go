package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "verdant/pkg/platform/strings"
)

// Config captures process-level configuration. Values that influence business
// decisions (thresholds, validity, plan catalogue) are threaded explicitly
// into the services that use them so the decision logic stays pure.
type Config struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the Postgres stores; when empty the process runs
	// on in-memory stores, which is how local development and most tests run.
	DatabaseURL string

	Redis RedisConfig
	Kafka KafkaConfig

	// ArtifactBaseURL points at the external document generation service.
	ArtifactBaseURL string

	// AdminEmail receives review-queue notifications.
	AdminEmail string

	Certification CertificationConfig

	PublicRateLimit RateLimitConfig
}

// RateLimitConfig throttles the unauthenticated endpoints.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RedisConfig configures the optional Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the payment-event consumer. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// CertificationConfig carries the certification policy knobs.
type CertificationConfig struct {
	// MinimumScore is the eligibility threshold (0-100).
	MinimumScore float64
	// ValidityYears is how long an activated subscription lasts.
	ValidityYears int
	// AutoGrading makes a completed payment trigger issuance when the
	// eligibility gate passes.
	AutoGrading bool
	// Plans maps external product references to internal plan names.
	// Payment events for unknown references are ignored.
	Plans map[string]string
	// SweepInterval is how often the subscription expiry sweep runs.
	SweepInterval time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("VERDANT_ADDR", ":8080"),
		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ArtifactBaseURL: envOr("ARTIFACT_SERVICE_URL", "http://localhost:8090"),
		AdminEmail:      envOr("ADMIN_EMAIL", "admin@verdant.local"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_PAYMENT_TOPIC", "payments.completed"),
			Group:   envOr("KAFKA_CONSUMER_GROUP", "verdant-billing"),
		},
		Certification: CertificationConfig{
			MinimumScore:  envFloat("CERT_MINIMUM_SCORE", 50),
			ValidityYears: envInt("SUBSCRIPTION_VALIDITY_YEARS", 1),
			AutoGrading:   os.Getenv("CERT_AUTO_GRADING") == "true",
			Plans:         parsePlans(envOr("BILLING_PLANS", "esg-basic:Basic,esg-premium:Premium")),
			SweepInterval: envDuration("SUBSCRIPTION_SWEEP_INTERVAL", 24*time.Hour),
		},
		PublicRateLimit: RateLimitConfig{
			RPS:   envFloat("PUBLIC_RATE_LIMIT_RPS", 5),
			Burst: envInt("PUBLIC_RATE_LIMIT_BURST", 20),
		},
	}
	return cfg
}

// parsePlans parses "ref:name,ref:name" pairs into the plan catalogue.
func parsePlans(raw string) map[string]string {
	plans := make(map[string]string)
	for _, pair := range splitNonEmpty(raw) {
		ref, name, ok := strings.Cut(pair, ":")
		if !ok || ref == "" || name == "" {
			continue
		}
		plans[ref] = name
	}
	return plans
}

func splitNonEmpty(raw string) []string {
	return platformstrings.DedupeAndTrim(strings.Split(raw, ","))
}

func envOr(key, fallback string) string {
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
