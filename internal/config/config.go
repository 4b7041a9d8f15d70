// Package config loads server configuration from the environment, with an
// optional .env file for development.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server binary needs.
type Config struct {
	Addr       string
	SQLitePath string
	JWTSecret  string

	// AllowedOrigins is the cross-origin allow-list. Empty means
	// same-origin only.
	AllowedOrigins []string

	// Workflow engine webhook targets.
	SurveyWebhookURL string
	ChatWebhookURL   string
	WorkflowToken    string

	// Payment provider.
	PaymentSecretKey string
	CheckoutSuccess  string
	CheckoutCancel   string

	// Email provider.
	EmailAPIKey string
	EmailFrom   string

	// AllowStatusRegression restores the legacy chat-session-complete
	// behavior that can pull a finished report back to completed.
	AllowStatusRegression bool
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:             env("CAREERLENS_ADDR", ":8080"),
		SQLitePath:       env("CAREERLENS_SQLITE_PATH", ""),
		JWTSecret:        env("CAREERLENS_JWT_SECRET", ""),
		SurveyWebhookURL: env("CAREERLENS_SURVEY_WEBHOOK_URL", ""),
		ChatWebhookURL:   env("CAREERLENS_CHAT_WEBHOOK_URL", ""),
		WorkflowToken:    env("CAREERLENS_WORKFLOW_TOKEN", ""),
		PaymentSecretKey: env("CAREERLENS_PAYMENT_SECRET_KEY", ""),
		CheckoutSuccess:  env("CAREERLENS_CHECKOUT_SUCCESS_URL", ""),
		CheckoutCancel:   env("CAREERLENS_CHECKOUT_CANCEL_URL", ""),
		EmailAPIKey:      env("CAREERLENS_EMAIL_API_KEY", ""),
		EmailFrom:        env("CAREERLENS_EMAIL_FROM", "CareerLens <no-reply@careerlens.app>"),
	}

	if origins := env("CAREERLENS_ALLOWED_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	switch strings.ToLower(env("CAREERLENS_ALLOW_STATUS_REGRESSION", "")) {
	case "1", "true", "yes":
		cfg.AllowStatusRegression = true
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("CAREERLENS_JWT_SECRET required")
	}
	return cfg, nil
}
