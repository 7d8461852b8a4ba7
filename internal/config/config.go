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
	RateRPS   int
	RateBurst int
}

// New loads and validates configuration from environment variables.
// Postgres, Redis, and NATS are required: the ledger cannot run without its
// storage, its balance cache, or its receipt pipeline. Rate limiting has
// sane defaults and needs no configuration.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:    os.Getenv("GIGLEDGER_POSTGRES_USER"),
		DBPass:    os.Getenv("GIGLEDGER_POSTGRES_PASSWORD"),
		DBHost:    os.Getenv("GIGLEDGER_POSTGRES_HOST"),
		DBPort:    os.Getenv("GIGLEDGER_POSTGRES_PORT"),
		DBName:    os.Getenv("GIGLEDGER_POSTGRES_DB"),
		SSLMode:   os.Getenv("GIGLEDGER_POSTGRES_SSLMODE"),
		RedisHost: os.Getenv("GIGLEDGER_REDIS_HOST"),
		RedisPort: os.Getenv("GIGLEDGER_REDIS_PORT"),
		NatsHost:  os.Getenv("GIGLEDGER_NATS_HOST"),
		NatsPort:  os.Getenv("GIGLEDGER_NATS_PORT"),
		ApiPort:   os.Getenv("GIGLEDGER_API_PORT"),
		RateRPS:   getEnvInt("GIGLEDGER_RATE_RPS", 20),
		RateBurst: getEnvInt("GIGLEDGER_RATE_BURST", 40),
	}

	// Required: database
	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" || cfg.SSLMode == "" {
		return nil, fmt.Errorf("missing required env for database: GIGLEDGER_POSTGRES_USER/HOST/DB/SSLMODE")
	}

	// Required: redis
	if cfg.RedisHost == "" || cfg.RedisPort == "" {
		return nil, fmt.Errorf("missing required env for redis: GIGLEDGER_REDIS_HOST/PORT")
	}

	// Required: nats
	if cfg.NatsHost == "" || cfg.NatsPort == "" {
		return nil, fmt.Errorf("missing required env for nats: GIGLEDGER_NATS_HOST/PORT")
	}

	// Required: HTTP API
	if cfg.ApiPort == "" {
		return nil, fmt.Errorf("missing required env: GIGLEDGER_API_PORT")
	}

	if cfg.RateRPS <= 0 || cfg.RateBurst <= 0 {
		return nil, fmt.Errorf("GIGLEDGER_RATE_RPS and GIGLEDGER_RATE_BURST must be positive")
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

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var intVal int
	if _, err := fmt.Sscanf(val, "%d", &intVal); err != nil {
		return defaultVal
	}
	return intVal
}
