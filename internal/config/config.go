package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser    string
	DBPass    string
	DBHost    string
	DBPort    string
	DBName    string
	SSLMode   string
	RedisHost string
	RedisPort string
	NatsHost  string
	NatsPort  string
	ApiPort   string
	JWTSecret string
}

// New loads and validates configuration from environment variables. A .env
// file is honored when present.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:    getEnv("POCKETBANK_POSTGRES_USER", ""),
		DBPass:    getEnv("POCKETBANK_POSTGRES_PASSWORD", ""),
		DBHost:    getEnv("POCKETBANK_POSTGRES_HOST", ""),
		DBPort:    getEnv("POCKETBANK_POSTGRES_PORT", "5432"),
		DBName:    getEnv("POCKETBANK_POSTGRES_DB", ""),
		SSLMode:   getEnv("POCKETBANK_POSTGRES_SSLMODE", "disable"),
		RedisHost: getEnv("POCKETBANK_REDIS_HOST", ""),
		RedisPort: getEnv("POCKETBANK_REDIS_PORT", "6379"),
		NatsHost:  getEnv("POCKETBANK_NATS_HOST", ""),
		NatsPort:  getEnv("POCKETBANK_NATS_PORT", "4222"),
		ApiPort:   getEnv("POCKETBANK_API_PORT", "8080"),
		JWTSecret: getEnv("POCKETBANK_JWT_SECRET", ""),
	}

	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("missing required env for database: POCKETBANK_POSTGRES_USER/HOST/DB")
	}
	if cfg.RedisHost == "" {
		return nil, fmt.Errorf("missing required env: POCKETBANK_REDIS_HOST")
	}
	if cfg.NatsHost == "" {
		return nil, fmt.Errorf("missing required env: POCKETBANK_NATS_HOST")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env: POCKETBANK_JWT_SECRET")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) NatsAddr() string {
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort)
}

func (c *Config) ApiAddr() string {
	return ":" + c.ApiPort
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
