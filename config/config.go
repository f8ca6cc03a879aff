package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Payment  PaymentConfig
	Webhook  WebhookConfig
	Orders   OrdersConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

type PaymentConfig struct {
	// PendingTTL bounds how long a PENDING payment may wait for confirmation.
	PendingTTL    time.Duration
	SweepInterval time.Duration
}

type WebhookConfig struct {
	// Secrets maps gateway name to its HMAC signing secret. A missing entry
	// disables verification for that gateway (development only).
	Secrets       map[string]string
	MaxRetries    int
	RetryBackoff  time.Duration
	RetryInterval time.Duration
}

// OrdersConfig points at the order service that supplies order context
// (amount, categories, shipping fee) for eligibility checks.
type OrdersConfig struct {
	BaseURL string
	Timeout time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8099"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "cartly:cartly@tcp(localhost:3306)/cartly?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			Issuer:       getEnv("JWT_ISSUER", "cartly"),
		},
		Payment: PaymentConfig{
			PendingTTL:    getEnvDuration("PAYMENT_PENDING_TTL", 15*time.Minute),
			SweepInterval: getEnvDuration("PAYMENT_SWEEP_INTERVAL", time.Minute),
		},
		Webhook: WebhookConfig{
			Secrets: map[string]string{
				"stripe": os.Getenv("WEBHOOK_SECRET_STRIPE"),
				"mpesa":  os.Getenv("WEBHOOK_SECRET_MPESA"),
				"stub":   os.Getenv("WEBHOOK_SECRET_STUB"),
			},
			MaxRetries:    getEnvInt("WEBHOOK_MAX_RETRIES", 5),
			RetryBackoff:  getEnvDuration("WEBHOOK_RETRY_BACKOFF", 5*time.Minute),
			RetryInterval: getEnvDuration("WEBHOOK_RETRY_INTERVAL", time.Minute),
		},
		Orders: OrdersConfig{
			BaseURL: getEnv("ORDERS_BASE_URL", ""),
			Timeout: 5 * time.Second,
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
