package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the server reads from the environment.
type Config struct {
	HTTPAddr           string
	DatabasePath       string
	AllowNegativeStock bool
	AuthSecret         string
	AuthTokenTTL       time.Duration
}

// Load reads configuration from the environment, falling back to defaults
// suitable for a single-store deployment.
func Load() Config {
	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "pos.db"),
		AllowNegativeStock: getEnvBool("ALLOW_NEGATIVE_STOCK", true),
		AuthSecret:         getEnv("AUTH_SECRET", "dev-secret-change-me"),
		AuthTokenTTL:       getEnvDuration("AUTH_TOKEN_TTL", 12*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
