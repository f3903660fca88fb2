package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	Env             string
	RedisURL        string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	StripeSecretKey  string
	StripeWebhookKey string
	StripePriceIDs   map[string]string // plan id -> Stripe Price id
	Currency         string

	N8NWebhookURL    string
	N8NCallbackToken string

	ChatwootBaseURL   string
	ChatwootAccountID string
	ChatwootAPIToken  string
	ChatwootInboxID   string

	// optional secret expected in the ?token= query of Chatwoot webhooks
	ChatwootWebhookToken string

	BotSailorBaseURL string
	BotSailorAPIKey  string

	ResendAPIKey string
	EmailFrom    string
	AdminEmail   string

	FrontendURL    string
	AllowedOrigins []string
	AdminEmails    []string

	AWSSecretName       string
	EventsTopicARN      string
	CloudWatchEnabled   bool
	CloudWatchNamespace string
}

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	accessTTL, err := time.ParseDuration(getEnv("ACCESS_TOKEN_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_TTL: %w", err)
	}
	refreshTTL, err := time.ParseDuration(getEnv("REFRESH_TOKEN_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_TTL: %w", err)
	}

	frontend := strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:3000"), "/")

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,

		StripeSecretKey:  os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceIDs: map[string]string{
			"essencial": os.Getenv("STRIPE_PRICE_ESSENCIAL"),
			"agenda":    os.Getenv("STRIPE_PRICE_AGENDA"),
			"conversao": os.Getenv("STRIPE_PRICE_CONVERSAO"),
		},
		Currency: strings.ToLower(getEnv("CURRENCY", "brl")),

		N8NWebhookURL:    strings.TrimSuffix(os.Getenv("N8N_WEBHOOK_URL"), "/"),
		N8NCallbackToken: os.Getenv("N8N_CALLBACK_TOKEN"),

		ChatwootBaseURL:      strings.TrimSuffix(os.Getenv("CHATWOOT_BASE_URL"), "/"),
		ChatwootAccountID:    os.Getenv("CHATWOOT_ACCOUNT_ID"),
		ChatwootAPIToken:     os.Getenv("CHATWOOT_API_TOKEN"),
		ChatwootInboxID:      os.Getenv("CHATWOOT_INBOX_ID"),
		ChatwootWebhookToken: os.Getenv("CHATWOOT_WEBHOOK_TOKEN"),

		BotSailorBaseURL: strings.TrimSuffix(getEnv("BOTSAILOR_BASE_URL", "https://botsailor.com/api/v1"), "/"),
		BotSailorAPIKey:  os.Getenv("BOTSAILOR_API_KEY"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    getEnv("EMAIL_FROM", "Digital Agents <no-reply@localhost>"),
		AdminEmail:   os.Getenv("ADMIN_EMAIL"),

		FrontendURL:    frontend,
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", frontend)),
		AdminEmails:    splitList(strings.ToLower(os.Getenv("ADMIN_EMAILS"))),

		AWSSecretName:       os.Getenv("AWS_SECRET_NAME"),
		EventsTopicARN:      os.Getenv("EVENTS_TOPIC_ARN"),
		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "DigitalAgents"),
	}

	return cfg, nil
}

// ApplySecrets overrides credentials with values from a JSON secret document
// whose keys mirror the environment variable names.
func (c *Config) ApplySecrets(raw string) error {
	var secrets map[string]string
	if err := json.Unmarshal([]byte(raw), &secrets); err != nil {
		return fmt.Errorf("decode secret: %w", err)
	}

	overrides := map[string]*string{
		"JWT_SECRET":             &c.JWTSecret,
		"STRIPE_API_KEY":         &c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET":  &c.StripeWebhookKey,
		"RESEND_API_KEY":         &c.ResendAPIKey,
		"CHATWOOT_API_TOKEN":     &c.ChatwootAPIToken,
		"BOTSAILOR_API_KEY":      &c.BotSailorAPIKey,
		"N8N_CALLBACK_TOKEN":     &c.N8NCallbackToken,
		"CHATWOOT_WEBHOOK_TOKEN": &c.ChatwootWebhookToken,
	}
	for key, dst := range overrides {
		if v := strings.TrimSpace(secrets[key]); v != "" {
			*dst = v
		}
	}
	return nil
}

// Validate reports configuration that prevents the service from starting.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("missing required environment variable JWT_SECRET")
	}
	if c.IsProduction() && (c.StripeSecretKey == "" || c.StripeWebhookKey == "") {
		return fmt.Errorf("missing required environment variables STRIPE_API_KEY/STRIPE_WEBHOOK_SECRET")
	}
	if c.N8NWebhookURL != "" && c.N8NCallbackToken == "" {
		return fmt.Errorf("N8N_CALLBACK_TOKEN is required when N8N_WEBHOOK_URL is set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) BillingEnabled() bool {
	return c.StripeSecretKey != ""
}

func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSuffix(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
