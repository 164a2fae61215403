package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets all CLOUDMASTER_ environment variables for a clean test.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"SERVER_PORT",
		"SERVER_HOST",
		"DATABASE_URL",
		"DATABASE_MAX_CONNS",
		"DATABASE_MIN_CONNS",
		"DATABASE_MIGRATE",
		"CACHE_URL",
		"FETCH_TIMEOUT",
		"FETCH_USER_AGENT",
		"BATCH_CONCURRENCY",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DATA_DIR",
		"CATALOG_PATH",
	}
	for _, v := range envVars {
		_ = os.Unsetenv(prefix + v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Database.URL = %q, want empty (in-memory stores)", cfg.Database.URL)
	}
	if !cfg.Database.Migrate {
		t.Error("Database.Migrate = false, want true")
	}
	if cfg.Cache.URL != "" {
		t.Errorf("Cache.URL = %q, want empty", cfg.Cache.URL)
	}
	if cfg.Fetch.Timeout != 60*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 60s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.BatchConcurrency != 4 {
		t.Errorf("Fetch.BatchConcurrency = %d, want 4", cfg.Fetch.BatchConcurrency)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want ./data", cfg.DataDir)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("CLOUDMASTER_SERVER_PORT", "9090")
	t.Setenv("CLOUDMASTER_SERVER_HOST", "127.0.0.1")
	t.Setenv("CLOUDMASTER_DATABASE_URL", "postgres://u:p@db:5432/cm")
	t.Setenv("CLOUDMASTER_DATABASE_MIGRATE", "false")
	t.Setenv("CLOUDMASTER_CACHE_URL", "redis://cache:6379")
	t.Setenv("CLOUDMASTER_FETCH_TIMEOUT", "15")
	t.Setenv("CLOUDMASTER_BATCH_CONCURRENCY", "8")
	t.Setenv("CLOUDMASTER_DATA_DIR", "/var/lib/cloudmaster")
	t.Setenv("CLOUDMASTER_LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("Server.Addr() = %q", cfg.Server.Addr())
	}
	if cfg.Database.URL != "postgres://u:p@db:5432/cm" || cfg.Database.Migrate {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Cache.URL != "redis://cache:6379" {
		t.Errorf("Cache.URL = %q", cfg.Cache.URL)
	}
	if cfg.Fetch.Timeout != 15*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 15s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.BatchConcurrency != 8 {
		t.Errorf("Fetch.BatchConcurrency = %d", cfg.Fetch.BatchConcurrency)
	}
	if cfg.DataDir != "/var/lib/cloudmaster" || cfg.Log.Format != "text" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_DurationFormats(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"30", 30 * time.Second, false},
		{"2m", 2 * time.Minute, false},
		{"1m30s", 90 * time.Second, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("CLOUDMASTER_FETCH_TIMEOUT", tt.value)
			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg.Fetch.Timeout != tt.want {
				t.Errorf("Fetch.Timeout = %v, want %v", cfg.Fetch.Timeout, tt.want)
			}
		})
	}
}

func TestEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("CLOUDMASTER_SERVER_PORT", "not-a-number")
	if got := envInt("CLOUDMASTER_SERVER_PORT", 8080); got != 8080 {
		t.Errorf("envInt() = %d, want fallback 8080", got)
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"false", false},
		{"0", false},
		{"yes", false},
	}
	for _, tt := range tests {
		t.Setenv("CLOUDMASTER_TEST_BOOL", tt.value)
		if got := envBool("CLOUDMASTER_TEST_BOOL", true); got != tt.want {
			t.Errorf("envBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		clearEnv(t)
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "SERVER_PORT"},
		{"no data dir", func(c *Config) { c.DataDir = "" }, "DATA_DIR"},
		{"zero timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "FETCH_TIMEOUT"},
		{"zero concurrency", func(c *Config) { c.Fetch.BatchConcurrency = 0 }, "BATCH_CONCURRENCY"},
		{"min over max", func(c *Config) {
			c.Database.URL = "postgres://x"
			c.Database.MinConns = 20
			c.Database.MaxConns = 5
		}, "DATABASE_MIN_CONNS"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "LOG_LEVEL"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantMsg)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	level, err := LogConfig{Level: "debug"}.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, %v", level, err)
	}
}
