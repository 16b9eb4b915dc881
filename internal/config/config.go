package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const devSecret = "dev-secret-change-in-production"

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

var (
	ErrProductionSecret = errors.New("JWT_SECRET must be set in production environment")
	ErrUnknownDriver    = errors.New("STORE_DRIVER must be mysql or memory")
)

type Config struct {
	Port          string        `yaml:"port"`
	Env           string        `yaml:"env"`
	LogLevel      string        `yaml:"log_level"`
	StoreDriver   string        `yaml:"store_driver"`
	DatabaseDSN   string        `yaml:"database_dsn"`
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenExpiry   time.Duration `yaml:"token_expiry"`
	AuthRateRPS   float64       `yaml:"auth_rate_limit_rps"`
	AuthRateBurst int           `yaml:"auth_rate_limit_burst"`
}

// Defaults returns the development configuration.
func Defaults() Config {
	return Config{
		Port:          "8080",
		Env:           "development",
		LogLevel:      "info",
		StoreDriver:   DriverMySQL,
		DatabaseDSN:   "root:password@tcp(127.0.0.1:3306)/taskmanager?parseTime=true",
		JWTSecret:     devSecret,
		TokenExpiry:   24 * time.Hour,
		AuthRateRPS:   5,
		AuthRateBurst: 10,
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing order of precedence.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Production reports whether the service runs in the production environment.
func (c Config) Production() bool {
	return c.Env == "production"
}

// Validate checks settings that would make the service unsafe or unusable.
func (c Config) Validate() error {
	if c.Production() && c.JWTSecret == devSecret {
		return ErrProductionSecret
	}
	if c.StoreDriver != DriverMySQL && c.StoreDriver != DriverMemory {
		return ErrUnknownDriver
	}
	if c.TokenExpiry < 0 {
		return fmt.Errorf("TOKEN_EXPIRY must not be negative, got %s", c.TokenExpiry)
	}
	if c.AuthRateRPS <= 0 || c.AuthRateBurst < 1 {
		return fmt.Errorf("auth rate limit must be positive, got %v rps burst %d", c.AuthRateRPS, c.AuthRateBurst)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)

	if v := os.Getenv("TOKEN_EXPIRY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOKEN_EXPIRY: %w", err)
		}
		cfg.TokenExpiry = d
	}
	if v := os.Getenv("AUTH_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid AUTH_RATE_LIMIT_RPS: %w", err)
		}
		cfg.AuthRateRPS = rps
	}
	if v := os.Getenv("AUTH_RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AUTH_RATE_LIMIT_BURST: %w", err)
		}
		cfg.AuthRateBurst = burst
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
