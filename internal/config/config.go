// Package config loads runtime configuration from the environment. A .env
// file is honored in development; real deployments set the variables
// directly. The two cipher keys are required and only ever handled as
// opaque strings here; they are decoded and validated by the token package
// and never logged.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	DatabaseURL string
	RedisAddr   string
	AMQPURL     string

	JWTSecret string

	EncryptionKeyHex string
	MACKeyHex        string
	TokenValidity    time.Duration

	ScanRatePerMinute int
}

const (
	defaultPort          = "8080"
	defaultTokenValidity = 720 * time.Hour
	defaultScanRate      = 120
)

// Load reads configuration from environment variables. Missing required
// values are fatal at startup; optional integrations (redis, rabbitmq) are
// disabled when their variables are empty.
func Load() Config {
	// Best effort; absence of a .env file is the normal production case.
	_ = godotenv.Load()

	return Config{
		Env:               getenv("APP_ENV", "dev"),
		Port:              getenv("PORT", defaultPort),
		DatabaseURL:       must("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		AMQPURL:           os.Getenv("RABBITMQ_URL"),
		JWTSecret:         must("JWT_SECRET"),
		EncryptionKeyHex:  must("TICKET_ENCRYPTION_KEY"),
		MACKeyHex:         must("TICKET_HMAC_KEY"),
		TokenValidity:     hours("TOKEN_VALIDITY_HOURS", defaultTokenValidity),
		ScanRatePerMinute: intenv("SCAN_RATE_PER_MINUTE", defaultScanRate),
	}
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intenv(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func hours(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		log.Fatalf("invalid hour count for %s: %q", key, s)
	}
	return time.Duration(n) * time.Hour
}
