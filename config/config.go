// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"internflow/policy"
)

// Config bundles everything the api process needs to start.
type Config struct {
	DatabaseURL string
	AMQPURL     string
	JWTSecret   string
	Policy      policy.Policy
}

// Load reads the environment, overlaying policy thresholds on the defaults.
// A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AMQPURL:     os.Getenv("AMQP_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		Policy:      policy.Default(),
	}

	var err error
	if cfg.Policy.MinInternshipDays, err = intEnv("MIN_INTERNSHIP_DAYS", cfg.Policy.MinInternshipDays); err != nil {
		return Config{}, err
	}
	if cfg.Policy.MinApprovedHours, err = floatEnv("MIN_APPROVED_HOURS", cfg.Policy.MinApprovedHours); err != nil {
		return Config{}, err
	}
	if cfg.Policy.PassMark, err = intEnv("PASS_MARK", cfg.Policy.PassMark); err != nil {
		return Config{}, err
	}
	if cfg.Policy.MaxDailyHours, err = floatEnv("MAX_DAILY_HOURS", cfg.Policy.MaxDailyHours); err != nil {
		return Config{}, err
	}
	if cfg.Policy.NotificationsEnabled, err = boolEnv("NOTIFICATIONS_ENABLED", cfg.Policy.NotificationsEnabled); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate checks the loaded configuration for values the process cannot
// run with.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.Policy.MinInternshipDays <= 0 {
		return fmt.Errorf("config: MIN_INTERNSHIP_DAYS must be positive")
	}
	if c.Policy.MinApprovedHours <= 0 {
		return fmt.Errorf("config: MIN_APPROVED_HOURS must be positive")
	}
	if c.Policy.PassMark <= 0 || c.Policy.PassMark > 100 {
		return fmt.Errorf("config: PASS_MARK must be in (0,100]")
	}
	if c.Policy.MaxDailyHours <= 0 || c.Policy.MaxDailyHours > 24 {
		return fmt.Errorf("config: MAX_DAILY_HOURS must be in (0,24]")
	}
	return nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}
