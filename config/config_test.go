package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "  secret  ")
	t.Setenv("FRONTEND_URL", "https://agentes.example.com/")
	t.Setenv("ADMIN_EMAILS", "Ops@Example.com, founder@example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "secret", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "brl", cfg.Currency)
	assert.Equal(t, "https://agentes.example.com", cfg.FrontendURL)
	assert.Equal(t, []string{"https://agentes.example.com"}, cfg.AllowedOrigins)
	assert.True(t, cfg.IsAdminEmail("ops@example.com"))
	assert.False(t, cfg.IsAdminEmail("client@example.com"))
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "soon")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "ACCESS_TOKEN_TTL")
}

func TestValidate(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: "s"}
	assert.Error(t, cfg.Validate())

	cfg.StripeSecretKey = "sk_test"
	cfg.StripeWebhookKey = "whsec"
	assert.NoError(t, cfg.Validate())

	cfg.N8NWebhookURL = "https://n8n.example.com/webhook"
	assert.ErrorContains(t, cfg.Validate(), "N8N_CALLBACK_TOKEN")

	cfg.N8NCallbackToken = "n8n-secret"
	assert.NoError(t, cfg.Validate())

	cfg.JWTSecret = ""
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{JWTSecret: "from-env", StripeSecretKey: "sk_env"}

	err := cfg.ApplySecrets(`{"JWT_SECRET":"from-secret","RESEND_API_KEY":"re_123","STRIPE_API_KEY":""}`)
	require.NoError(t, err)

	assert.Equal(t, "from-secret", cfg.JWTSecret)
	assert.Equal(t, "re_123", cfg.ResendAPIKey)
	assert.Equal(t, "sk_env", cfg.StripeSecretKey)

	assert.Error(t, cfg.ApplySecrets("not json"))
}
