// Package dbconfig builds Postgres connection settings from the environment.
package dbconfig

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds Postgres connection settings. URL, when set, is used as the
// DSN verbatim and the individual fields are informational only.
type Config struct {
	URL            string
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string
	AppName        string
	ConnectTimeout int // seconds, 0 means no timeout
}

// NewConfigFromEnv reads DATABASE_URL or the DB_* environment variables.
func NewConfigFromEnv() Config {
	return Config{
		URL:            os.Getenv("DATABASE_URL"),
		Host:           getEnv("DB_HOST", "localhost"),
		Port:           getEnvAsInt("DB_PORT", 5432),
		User:           getEnv("DB_USER", "postgres"),
		Password:       getEnv("DB_PASSWORD", "postgres"),
		Database:       getEnv("DB_NAME", "studysync"),
		SSLMode:        getEnv("DB_SSLMODE", "disable"),
		AppName:        getEnv("DB_APP_NAME", "studysync"),
		ConnectTimeout: getEnvAsInt("DB_CONNECT_TIMEOUT", 5),
	}
}

// DSN returns the Postgres connection URL. It works for both lib/pq and pgx.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	if c.AppName != "" {
		query.Set("application_name", c.AppName)
	}
	if c.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(c.ConnectTimeout))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
