// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/payment-connectors/internal/domain"
)

// AppConfig is everything the demo server needs to run the GlobePay
// connector.
type AppConfig struct {
	ListenAddr     string
	GatewayBaseURL string
	GatewayAuth    domain.AuthConfig
	HTTPTimeout    time.Duration
	CallLogLimit   int
}

// Load reads configuration, preferring process env vars over .env.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("connectors: no .env file found, relying on system env vars")
	}

	timeout, err := time.ParseDuration(getEnv("GATEWAY_HTTP_TIMEOUT", "10s"))
	if err != nil {
		timeout = 10 * time.Second
	}

	return AppConfig{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		GatewayBaseURL: getEnv("GLOBEPAY_BASE_URL", "https://pay.globepay.co"),
		GatewayAuth: domain.AuthConfig{
			Kind:   domain.AuthBodyKey,
			APIKey: domain.NewSecret(getEnv("GLOBEPAY_PARTNER_CODE", "")),
			Key1:   domain.NewSecret(getEnv("GLOBEPAY_CREDENTIAL_CODE", "")),
		},
		HTTPTimeout:  timeout,
		CallLogLimit: 1024,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
