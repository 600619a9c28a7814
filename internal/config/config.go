package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Remote Package/Booking API
	APIBaseURL string

	// Payment gateway
	GatewayCheckoutURL string
	GatewayReturnURL   string

	// Session store
	DatabaseURL string
}

// Load loads configuration from environment variables
func Load() *Config {
	// Try to load .env file (optional for local development)
	_ = godotenv.Load()

	config := &Config{
		Port:               getEnv("PORT", "8080"),
		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:5000"),
		GatewayCheckoutURL: getEnv("GATEWAY_CHECKOUT_URL", "https://payments.cashfree.com/order"),
		GatewayReturnURL:   getEnv("GATEWAY_RETURN_URL", "http://localhost:8080/payment/return"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
	}

	if config.DatabaseURL == "" {
		log.Println("WARNING: DATABASE_URL not set, session snapshots will be kept in memory only")
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
