package config

import (
	"errors"
	"os"

	"salonlink.app/cloud/models"
)

type Config struct {
	Port string

	DatabaseURL string

	AppURL    string
	StaticDir string

	StripeSecret        string
	StripeWebhookSecret string

	StripePriceStandard string
	StripePriceBusiness string
	StripePricePro      string
	StripePriceSetup    string

	SentryDSN string
}

func New() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:3000"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	stripeSecret := os.Getenv("STRIPE_SECRET_KEY")
	if stripeSecret == "" {
		return nil, errors.New("STRIPE_SECRET_KEY environment variable is required")
	}

	stripeWebhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if stripeWebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET environment variable is required")
	}

	priceStandard := os.Getenv("STRIPE_PRICE_STANDARD")
	priceBusiness := os.Getenv("STRIPE_PRICE_BUSINESS")
	pricePro := os.Getenv("STRIPE_PRICE_PRO")
	if priceStandard == "" || priceBusiness == "" || pricePro == "" {
		return nil, errors.New("STRIPE_PRICE_STANDARD, STRIPE_PRICE_BUSINESS, and STRIPE_PRICE_PRO environment variables are required")
	}

	return &Config{
		Port:                port,
		DatabaseURL:         dbURL,
		AppURL:              appURL,
		StaticDir:           os.Getenv("STATIC_DIR"),
		StripeSecret:        stripeSecret,
		StripeWebhookSecret: stripeWebhookSecret,
		StripePriceStandard: priceStandard,
		StripePriceBusiness: priceBusiness,
		StripePricePro:      pricePro,
		StripePriceSetup:    os.Getenv("STRIPE_PRICE_SETUP"),
		SentryDSN:           os.Getenv("SENTRY_DSN"),
	}, nil
}

// Plans maps plan identifiers to Stripe price identifiers.
func (c *Config) Plans() map[string]string {
	return map[string]string{
		models.PlanStandard: c.StripePriceStandard,
		models.PlanBusiness: c.StripePriceBusiness,
		models.PlanPro:      c.StripePricePro,
	}
}
