// Package config loads application configuration from environment variables.
// All variables use the CLOUDMASTER_ prefix.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const prefix = "CLOUDMASTER_"

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Fetch       FetchConfig
	Log         LogConfig
	DataDir     string
	CatalogPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL keeps
// training and exam history in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Migrate  bool // apply the schema at startup
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL keeps
// course statuses in memory.
type CacheConfig struct {
	URL string
}

// FetchConfig holds settings for downloading question banks and images.
type FetchConfig struct {
	Timeout          time.Duration
	UserAgent        string
	BatchConcurrency int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with CLOUDMASTER_ prefix.
func Load() (*Config, error) {
	timeout, err := envSeconds(prefix+"FETCH_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt(prefix+"SERVER_PORT", 8080),
			Host: envStr(prefix+"SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr(prefix+"DATABASE_URL", ""),
			MaxConns: envInt(prefix+"DATABASE_MAX_CONNS", 10),
			MinConns: envInt(prefix+"DATABASE_MIN_CONNS", 2),
			Migrate:  envBool(prefix+"DATABASE_MIGRATE", true),
		},
		Cache: CacheConfig{
			URL: envStr(prefix+"CACHE_URL", ""),
		},
		Fetch: FetchConfig{
			Timeout:          timeout,
			UserAgent:        envStr(prefix+"FETCH_USER_AGENT", "cloudmaster/1.0"),
			BatchConcurrency: envInt(prefix+"BATCH_CONCURRENCY", 4),
		},
		Log: LogConfig{
			Level:  envStr(prefix+"LOG_LEVEL", "info"),
			Format: envStr(prefix+"LOG_FORMAT", "json"),
		},
		DataDir:     envStr(prefix+"DATA_DIR", "./data"),
		CatalogPath: envStr(prefix+"CATALOG_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%sSERVER_PORT must be between 1 and 65535, got %d", prefix, c.Server.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%sDATA_DIR is required", prefix)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("%sFETCH_TIMEOUT must be positive", prefix)
	}
	if c.Fetch.BatchConcurrency < 1 {
		return fmt.Errorf("%sBATCH_CONCURRENCY must be at least 1, got %d", prefix, c.Fetch.BatchConcurrency)
	}
	if c.Database.URL != "" && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("%sDATABASE_MIN_CONNS (%d) exceeds %sDATABASE_MAX_CONNS (%d)",
			prefix, c.Database.MinConns, prefix, c.Database.MaxConns)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("%sLOG_FORMAT must be 'json' or 'text', got %q", prefix, c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%sLOG_LEVEL: %w", prefix, err)
	}
	return level, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// envSeconds accepts a bare number of seconds or a Go duration ("90s", "2m").
func envSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
