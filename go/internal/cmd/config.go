package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendNATS     = "nats"
	BackendPostgres = "postgres"
)

type Config struct {
	Port string `yaml:"port"`

	Store struct {
		Backend string `yaml:"backend"`
		NATS    struct {
			URL    string `yaml:"url"`
			Bucket string `yaml:"bucket"`
		} `yaml:"nats"`
		Postgres struct {
			NotifyChannel    string        `yaml:"notify_channel"`
			FallbackInterval time.Duration `yaml:"fallback_interval"`
		} `yaml:"postgres"`
	} `yaml:"store"`

	Timer struct {
		ExpiryPolicy    string        `yaml:"expiry_policy"`
		ResubscribeWait time.Duration `yaml:"resubscribe_wait"`
	} `yaml:"timer"`

	Auth struct {
		TokenSecret   string `yaml:"token_secret"`
		TokenTTLHours int    `yaml:"token_ttl_hours"`
	} `yaml:"auth"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func defaultConfig() *Config {
	var config Config
	config.Port = "8080"
	config.Store.Backend = BackendMemory
	config.Store.NATS.URL = "nats://localhost:4222"
	config.Store.NATS.Bucket = "STUDYSYNC_ROOMS"
	config.Store.Postgres.NotifyChannel = "shared_state_changes"
	config.Store.Postgres.FallbackInterval = 30 * time.Second
	config.Timer.ExpiryPolicy = string(roomtimer.ExpiryAutoContinue)
	config.Timer.ResubscribeWait = 2 * time.Second
	config.Auth.TokenTTLHours = 24
	return &config
}

// loadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Port = getEnv("PORT", config.Port)
	config.Store.Backend = getEnv("STORE_BACKEND", config.Store.Backend)
	config.Store.NATS.URL = getEnv("NATS_URL", config.Store.NATS.URL)
	config.Timer.ExpiryPolicy = getEnv("TIMER_EXPIRY_POLICY", config.Timer.ExpiryPolicy)
	config.Auth.TokenSecret = getEnv("TOKEN_SECRET", config.Auth.TokenSecret)
	config.Auth.TokenTTLHours = getEnvAsInt("TOKEN_TTL_HOURS", config.Auth.TokenTTLHours)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendNATS, BackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendPostgres && c.Store.Postgres.FallbackInterval <= 0 {
		return fmt.Errorf("store.postgres.fallback_interval must be positive, got %s", c.Store.Postgres.FallbackInterval)
	}
	if _, err := roomtimer.ParseExpiryPolicy(c.Timer.ExpiryPolicy); err != nil {
		return err
	}
	if c.Auth.TokenSecret == "" {
		return errors.New("TOKEN_SECRET (or auth.token_secret) is required")
	}
	return nil
}

func (c *Config) expiryPolicy() roomtimer.ExpiryPolicy {
	policy, _ := roomtimer.ParseExpiryPolicy(c.Timer.ExpiryPolicy)
	return policy
}
