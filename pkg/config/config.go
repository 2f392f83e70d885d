// Package config loads application configuration from environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Storage       StorageConfig
	Identity      IdentityConfig
	Providers     ProviderConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
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

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StorageConfig holds KV table and blob bucket settings
type StorageConfig struct {
	MainTable   string
	FilesBucket string
	Region      string

	// Optional endpoint override for local DynamoDB/S3 stands
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// IdentityConfig holds the user-pool settings
type IdentityConfig struct {
	UserPoolID       string
	UserPoolClientID string
	Region           string
}

// ProviderConfig holds LLM provider settings
type ProviderConfig struct {
	BedrockRegion string
	GeminiAPIKey  string
	// Upper bound for a single provider invocation
	InvokeTimeout time.Duration
}

// AuthConfig controls bearer-token verification
type AuthConfig struct {
	// Issuer URL for OIDC discovery; derived from the user pool when empty
	IssuerURL string
	ClientID  string
	// DevMode accepts the bearer value as a raw user id. Local use only.
	DevMode bool
}

// RateLimitConfig holds the per-user chat rate limit
type RateLimitConfig struct {
	Enabled           bool
	RedisURL          string
	RedisPassword     string
	RedisDB           int
	RequestsPerMinute int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("AICHAT_HOST", "0.0.0.0"),
			Port:            getEnv("AICHAT_PORT", "8080"),
			ReadTimeout:     getEnvDuration("AICHAT_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("AICHAT_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:     getEnvDuration("AICHAT_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("AICHAT_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("AICHAT_HEALTH_PORT", "9090"),
		},
		Storage: StorageConfig{
			MainTable:    getEnv("MAIN_TABLE", ""),
			FilesBucket:  getEnv("FILES_BUCKET", ""),
			Region:       getEnv("AWS_REGION", "us-east-1"),
			Endpoint:     getEnv("AICHAT_STORAGE_ENDPOINT", ""),
			AccessKey:    getEnv("AICHAT_STORAGE_ACCESS_KEY", ""),
			SecretKey:    getEnv("AICHAT_STORAGE_SECRET_KEY", ""),
			UsePathStyle: getEnvBool("AICHAT_STORAGE_PATH_STYLE", false),
		},
		Identity: IdentityConfig{
			UserPoolID:       getEnv("USER_POOL_ID", ""),
			UserPoolClientID: getEnv("USER_POOL_CLIENT_ID", ""),
			Region:           getEnv("AWS_REGION", "us-east-1"),
		},
		Providers: ProviderConfig{
			BedrockRegion: getEnv("BEDROCK_REGION", "us-east-1"),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			InvokeTimeout: getEnvDuration("AICHAT_INVOKE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			IssuerURL: getEnv("AICHAT_OIDC_ISSUER", ""),
			ClientID:  getEnv("USER_POOL_CLIENT_ID", ""),
			DevMode:   getEnvBool("AUTH_DEV_MODE", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvBool("AICHAT_RATELIMIT_ENABLED", false),
			RedisURL:          getEnv("AICHAT_REDIS_URL", "localhost:6379"),
			RedisPassword:     getEnv("AICHAT_REDIS_PASSWORD", ""),
			RedisDB:           getEnvInt("AICHAT_REDIS_DB", 0),
			RequestsPerMinute: getEnvInt("AICHAT_RATELIMIT_RPM", 30),
		},
		Observability: ObservabilityConfig{
			LogLevel:           getEnv("AICHAT_LOG_LEVEL", "info"),
			MetricsEnabled:     getEnvBool("AICHAT_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("AICHAT_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("AICHAT_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("AICHAT_OTEL_SERVICE_NAME", "aichat-backend"),
			OTelServiceVersion: getEnv("AICHAT_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("AICHAT_OTEL_INSECURE", true),
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
	if c.Storage.MainTable == "" {
		return fmt.Errorf("MAIN_TABLE is required")
	}
	if c.Storage.FilesBucket == "" {
		return fmt.Errorf("FILES_BUCKET is required")
	}
	if c.Providers.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if !c.Auth.DevMode {
		if c.Identity.UserPoolID == "" || c.Identity.UserPoolClientID == "" {
			return fmt.Errorf("USER_POOL_ID and USER_POOL_CLIENT_ID are required unless AUTH_DEV_MODE is set")
		}
	}
	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}
	return nil
}

// OIDCIssuer returns the configured issuer, falling back to the Cognito
// issuer URL derived from the pool id (format "<region>_<poolName>").
func (c *Config) OIDCIssuer() string {
	if c.Auth.IssuerURL != "" {
		return c.Auth.IssuerURL
	}
	if c.Identity.UserPoolID == "" {
		return ""
	}
	region := c.Identity.Region
	if i := strings.Index(c.Identity.UserPoolID, "_"); i > 0 {
		region = c.Identity.UserPoolID[:i]
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, c.Identity.UserPoolID)
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

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
