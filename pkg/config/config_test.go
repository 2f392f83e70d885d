package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", HealthPort: "9090"},
		Storage: StorageConfig{
			MainTable:   "aichat-main",
			FilesBucket: "aichat-files",
		},
		Identity:  IdentityConfig{UserPoolID: "ap-northeast-1_AbCdEf", UserPoolClientID: "client-1", Region: "us-east-1"},
		Providers: ProviderConfig{GeminiAPIKey: "key"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	t.Run("ports must differ", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.HealthPort = cfg.Server.Port
		assert.Error(t, cfg.Validate())
	})

	t.Run("table and bucket required", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storage.MainTable = ""
		assert.Error(t, cfg.Validate())

		cfg = validConfig()
		cfg.Storage.FilesBucket = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("gemini key required", func(t *testing.T) {
		cfg := validConfig()
		cfg.Providers.GeminiAPIKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("pool required unless dev mode", func(t *testing.T) {
		cfg := validConfig()
		cfg.Identity.UserPoolID = ""
		assert.Error(t, cfg.Validate())

		cfg.Auth.DevMode = true
		assert.NoError(t, cfg.Validate())
	})

	t.Run("otel endpoint required when enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Observability.OTelEnabled = true
		cfg.Observability.OTelEndpoint = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestOIDCIssuer(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "https://cognito-idp.ap-northeast-1.amazonaws.com/ap-northeast-1_AbCdEf", cfg.OIDCIssuer())

	t.Run("explicit issuer wins", func(t *testing.T) {
		cfg := validConfig()
		cfg.Auth.IssuerURL = "https://issuer.example.com"
		assert.Equal(t, "https://issuer.example.com", cfg.OIDCIssuer())
	})

	t.Run("no pool means no issuer", func(t *testing.T) {
		cfg := validConfig()
		cfg.Identity.UserPoolID = ""
		assert.Equal(t, "", cfg.OIDCIssuer())
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MAIN_TABLE", "main")
	t.Setenv("FILES_BUCKET", "files")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("AUTH_DEV_MODE", "true")
	t.Setenv("AICHAT_READ_TIMEOUT", "5s")
	t.Setenv("AICHAT_RATELIMIT_RPM", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.WriteTimeout)
	assert.True(t, cfg.Auth.DevMode)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 30, getEnvInt("AICHAT_UNSET_INT", 30))
	assert.True(t, cfg.Observability.MetricsEnabled)
}
