package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/solvenote/solvenote/pkg/observability"
)

// Auth modes
const (
	AuthModeJWT  = "jwt"
	AuthModeOIDC = "oidc"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Credits       CreditsConfig
	Auth          AuthConfig
	Billing       BillingConfig
	RateLimit     RateLimitConfig
	Suggestions   SuggestionsConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	CORSOrigins     []string

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds credit store connection settings
type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	ConnectTimeout time.Duration
	MaxLifetime    time.Duration
	MigrateOnStart bool
}

// RedisConfig holds Redis settings. Redis is optional.
type RedisConfig struct {
	Enabled bool
	URL     string
}

// CreditsConfig holds credit accounting policy
type CreditsConfig struct {
	DefaultAllowance int
	ResetTimezone    string
	StoreTimeout     time.Duration
}

// AuthConfig selects and configures the bearer token verifier
type AuthConfig struct {
	Mode           string
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	OIDCIssuerURL  string
	OIDCClientID   string
	TokenCacheSize int
}

// BillingConfig holds payment webhook settings
type BillingConfig struct {
	StripeWebhookSecret string
	SignatureTolerance  time.Duration
	EventDedupeTTL      time.Duration
}

// RateLimitConfig limits credit-consuming endpoints per user
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerWindow int
	Window            time.Duration
}

// SuggestionsConfig configures the suggestion generator
type SuggestionsConfig struct {
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIEndpoint string
	Timeout        time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool
	StatsSchedule  string

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
	OTelSampleRatio    float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SOLVENOTE_HOST", "0.0.0.0"),
			Port:            getEnv("SOLVENOTE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("SOLVENOTE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SOLVENOTE_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SOLVENOTE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SOLVENOTE_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodyBytes:    getEnvInt64("SOLVENOTE_MAX_BODY_BYTES", 1<<20),
			CORSOrigins:     getEnvList("SOLVENOTE_CORS_ORIGINS", []string{"*"}),
			HealthPort:      getEnv("SOLVENOTE_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("SOLVENOTE_DATABASE_URL", ""),
			MaxConns:       getEnvInt("SOLVENOTE_DATABASE_MAX_CONNS", 20),
			MinConns:       getEnvInt("SOLVENOTE_DATABASE_MIN_CONNS", 2),
			ConnectTimeout: getEnvDuration("SOLVENOTE_DATABASE_TIMEOUT", 10*time.Second),
			MaxLifetime:    getEnvDuration("SOLVENOTE_DATABASE_MAX_LIFETIME", 30*time.Minute),
			MigrateOnStart: getEnvBool("SOLVENOTE_DATABASE_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled: getEnvBool("SOLVENOTE_REDIS_ENABLED", false),
			URL:     getEnv("SOLVENOTE_REDIS_URL", "redis://localhost:6379/0"),
		},
		Credits: CreditsConfig{
			DefaultAllowance: getEnvInt("SOLVENOTE_CREDITS_DEFAULT_ALLOWANCE", 3),
			ResetTimezone:    getEnv("SOLVENOTE_CREDITS_RESET_TIMEZONE", "UTC"),
			StoreTimeout:     getEnvDuration("SOLVENOTE_CREDITS_STORE_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			Mode:           strings.ToLower(getEnv("SOLVENOTE_AUTH_MODE", AuthModeJWT)),
			JWTSecret:      getEnv("SOLVENOTE_AUTH_JWT_SECRET", ""),
			JWTIssuer:      getEnv("SOLVENOTE_AUTH_JWT_ISSUER", ""),
			JWTAudience:    getEnv("SOLVENOTE_AUTH_JWT_AUDIENCE", "authenticated"),
			OIDCIssuerURL:  getEnv("SOLVENOTE_AUTH_OIDC_ISSUER", ""),
			OIDCClientID:   getEnv("SOLVENOTE_AUTH_OIDC_CLIENT_ID", ""),
			TokenCacheSize: getEnvInt("SOLVENOTE_AUTH_TOKEN_CACHE_SIZE", 4096),
		},
		Billing: BillingConfig{
			StripeWebhookSecret: getEnv("SOLVENOTE_STRIPE_WEBHOOK_SECRET", ""),
			SignatureTolerance:  getEnvDuration("SOLVENOTE_STRIPE_SIGNATURE_TOLERANCE", 5*time.Minute),
			EventDedupeTTL:      getEnvDuration("SOLVENOTE_STRIPE_EVENT_TTL", 72*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvBool("SOLVENOTE_RATE_LIMIT_ENABLED", true),
			RequestsPerWindow: getEnvInt("SOLVENOTE_RATE_LIMIT_REQUESTS", 30),
			Window:            getEnvDuration("SOLVENOTE_RATE_LIMIT_WINDOW", time.Minute),
		},
		Suggestions: SuggestionsConfig{
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("SOLVENOTE_OPENAI_MODEL", "gpt-3.5-turbo"),
			OpenAIEndpoint: getEnv("SOLVENOTE_OPENAI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
			Timeout:        getEnvDuration("SOLVENOTE_OPENAI_TIMEOUT", 20*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("SOLVENOTE_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("SOLVENOTE_METRICS_ENABLED", true),
			StatsSchedule:      getEnv("SOLVENOTE_STATS_SCHEDULE", "@every 1m"),
			OTelEnabled:        getEnvBool("SOLVENOTE_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("SOLVENOTE_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("SOLVENOTE_OTEL_SERVICE_NAME", "solvenote"),
			OTelServiceVersion: getEnv("SOLVENOTE_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("SOLVENOTE_OTEL_INSECURE", true),
			OTelSampleRatio:    getEnvFloat("SOLVENOTE_OTEL_SAMPLE_RATIO", 1.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Credits.DefaultAllowance <= 0 {
		return fmt.Errorf("default credit allowance must be positive")
	}
	if _, err := time.LoadLocation(c.Credits.ResetTimezone); err != nil {
		return fmt.Errorf("invalid reset timezone %q: %w", c.Credits.ResetTimezone, err)
	}
	if c.Credits.StoreTimeout <= 0 {
		return fmt.Errorf("credit store timeout must be positive")
	}

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT secret is required for jwt auth mode")
		}
	case AuthModeOIDC:
		if c.Auth.OIDCIssuerURL == "" || c.Auth.OIDCClientID == "" {
			return fmt.Errorf("OIDC issuer and client id are required for oidc auth mode")
		}
	default:
		return fmt.Errorf("invalid auth mode: %s (must be jwt or oidc)", c.Auth.Mode)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit requests and window must be positive")
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
