package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings, loaded from the environment.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration

	// Redis backs the per-user selected-project persistence. Empty means
	// selection is kept in memory only.
	RedisAddr     string
	RedisPassword string

	// Generative endpoint for the risk-analysis flow.
	RiskAPIURL string
	RiskAPIKey string

	CORSOrigins string
}

// Load reads configuration from the environment. A local .env file is
// applied first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}

	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:   getEnv("DATABASE_URL", "santiye.db"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTTTL:        getDuration("JWT_TTL", 24*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RiskAPIURL:    getEnv("RISK_API_URL", ""),
		RiskAPIKey:    getEnv("RISK_API_KEY", ""),
		CORSOrigins:   getEnv("CORS_ALLOWED_ORIGINS", ""),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %s", key, v, def)
		return def
	}
	return d
}
