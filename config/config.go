// Package config loads service configuration from a YAML file layered over
// CHARGE_* environment variables. Flags in cmd/server override both.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig selects the backing store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // memory | sqlite | postgres
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig controls the background billing runs.
type SchedulerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // standard 5-field cron expression
}

// Config is the full service configuration.
type Config struct {
	ListenAddr  string          `yaml:"listen_addr"`
	Database    DatabaseConfig  `yaml:"database"`
	Currency    string          `yaml:"currency"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	CORSOrigins []string        `yaml:"cors_origins"`
}

// Load builds the configuration: env-derived defaults, then the YAML file
// at path (or $CHARGE_CONFIG) layered on top.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddr: getenvDefault("CHARGE_LISTEN_ADDR", ":8080"),
		Database: DatabaseConfig{
			Driver: getenvDefault("CHARGE_DB_DRIVER", "sqlite"),
			DSN:    getenvDefault("CHARGE_DB_DSN", "charges.db"),
		},
		Currency: getenvDefault("CHARGE_CURRENCY", "USD"),
		Scheduler: SchedulerConfig{
			Enabled: getenvBoolDefault("CHARGE_SCHEDULER_ENABLED", true),
			// 06:00 on the 1st of every month
			Cron: getenvDefault("CHARGE_SCHEDULER_CRON", "0 6 1 * *"),
		},
		CORSOrigins: splitCSV(getenvDefault("CHARGE_CORS_ORIGINS",
			"http://localhost:5173,http://localhost:8080")),
	}

	if path == "" {
		path = os.Getenv("CHARGE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields cmd/server cannot proceed without.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("config: %s driver requires a dsn", c.Database.Driver)
		}
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen addr required")
	}
	if c.Currency == "" {
		return fmt.Errorf("config: currency required")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
