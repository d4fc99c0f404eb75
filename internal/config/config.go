package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all process configuration read from the environment.
// Business settings such as the tax rate are stored in the database, not here.
type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string
}

// AppConfig holds HTTP and presentation settings.
type AppConfig struct {
	Environment    string
	Port           string
	AllowedOrigins string
	LogLevel       string
	CompanyName    string
}

// RedisConfig is optional; an empty URL disables the idempotency guard.
type RedisConfig struct {
	URL string
}

// KafkaConfig is optional; no brokers disables event publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from the environment, loading .env first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		App: AppConfig{
			Environment:    getEnv("APP_ENV", "development"),
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			CompanyName:    getEnv("COMPANY_NAME", "Workshop"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "workshop.events"),
		},
	}

	return cfg, nil
}

// RequireDatabase returns an error when DATABASE_URL is not configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return nil
}

// IsDevelopment reports whether human-readable console logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
