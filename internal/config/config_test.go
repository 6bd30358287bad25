package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:                 "8081",
		APIBaseURL:           "http://localhost:8082",
		APIPathPrefix:        "/v1/public",
		APIAdminPathPrefix:   "/v1/admin",
		APITimeout:           10 * time.Second,
		CacheTTL:             5 * time.Minute,
		CacheMaxEntries:      64,
		CacheCleanupInterval: time.Minute,
		RateLimitRPS:         5,
		RateLimitBurst:       10,
		StubPort:             "8082",
		DataBackend:          "memory",
		SeedSource:           "files",
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid memory backend config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range low",
			mutate:      func(c *Config) { c.Port = "0" },
			wantErr:     true,
			errorString: "invalid port 0: must be between 1 and 65535",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "missing API base URL",
			mutate:      func(c *Config) { c.APIBaseURL = "" },
			wantErr:     true,
			errorString: "API base URL cannot be empty",
		},
		{
			name:        "invalid API scheme",
			mutate:      func(c *Config) { c.APIBaseURL = "ftp://example.com" },
			wantErr:     true,
			errorString: "invalid API base URL scheme 'ftp'",
		},
		{
			name:        "path prefix without slash",
			mutate:      func(c *Config) { c.APIPathPrefix = "v1" },
			wantErr:     true,
			errorString: "invalid API path prefix 'v1'",
		},
		{
			name:        "timeout too short",
			mutate:      func(c *Config) { c.APITimeout = 10 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid API timeout 10ms: must be at least 100ms",
		},
		{
			name:        "cache size too small",
			mutate:      func(c *Config) { c.CacheMaxEntries = 0 },
			wantErr:     true,
			errorString: "invalid cache size 0: must be at least 1",
		},
		{
			name:        "negative cache TTL",
			mutate:      func(c *Config) { c.CacheTTL = -time.Second },
			wantErr:     true,
			errorString: "invalid cache TTL",
		},
		{
			name:        "zero rate limit",
			mutate:      func(c *Config) { c.RateLimitRPS = 0 },
			wantErr:     true,
			errorString: "invalid rate limit 0: must be positive",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "invalid" },
			wantErr:     true,
			errorString: "invalid data backend 'invalid': must be one of [memory sqlite]",
		},
		{
			name: "sqlite backend missing database path",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = ""
			},
			wantErr:     true,
			errorString: "SQLite database path cannot be empty when using sqlite backend",
		},
		{
			name: "sheets seed missing spreadsheet ID",
			mutate: func(c *Config) {
				c.SeedSource = "sheets"
				c.GoogleCategoriesSheetName = "Categories"
				c.GoogleServiceAccountJSON = "{}"
			},
			wantErr:     true,
			errorString: "Google Spreadsheet ID is required when seeding from sheets",
		},
		{
			name:        "invalid seed source",
			mutate:      func(c *Config) { c.SeedSource = "ftp" },
			wantErr:     true,
			errorString: "invalid seed source 'ftp'",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "loud" },
			wantErr:     true,
			errorString: "invalid log level 'loud'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else if err != nil {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.DataBackend = "invalid"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid port") || !strings.Contains(err.Error(), "invalid data backend") {
		t.Errorf("expected both problems, got %v", err)
	}
}

func TestConfig_ValidateWithFiles(t *testing.T) {
	tmpDir := t.TempDir()
	credFile := filepath.Join(tmpDir, "sa.json")
	if err := os.WriteFile(credFile, []byte(`{"type":"service_account"}`), 0644); err != nil {
		t.Fatalf("Failed to create test credentials file: %v", err)
	}

	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{name: "existing service account file", file: credFile, wantErr: false},
		{name: "missing service account file", file: filepath.Join(tmpDir, "missing.json"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.SeedSource = "sheets"
			cfg.GoogleSpreadsheetID = "123456789"
			cfg.GoogleCategoriesSheetName = "Categories"
			cfg.GoogleServiceAccountFile = tt.file
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("sqlite directory is created", func(t *testing.T) {
		cfg := validConfig()
		cfg.DataBackend = "sqlite"
		cfg.SQLiteDBPath = filepath.Join(tmpDir, "nested", "categories.db")
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(tmpDir, "nested")); err != nil {
			t.Errorf("expected directory to exist: %v", err)
		}
	})
}

func TestConfig_ValidateStub(t *testing.T) {
	cfg := validConfig()
	cfg.StubPort = "nope"
	if err := cfg.ValidateStub(); err == nil || !strings.Contains(err.Error(), "invalid stub port 'nope'") {
		t.Errorf("ValidateStub() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	keys := []string{"PORT", "API_BASE_URL", "API_TIMEOUT", "CATEGORY_CACHE_TTL", "OPTION_INDENT", "DATA_BACKEND", "METRICS_ENABLED", "RATE_LIMIT_RPS"}

	t.Run("default values", func(t *testing.T) {
		for _, k := range keys {
			t.Setenv(k, "")
		}
		cfg := Load()

		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.APITimeout != 10*time.Second {
			t.Errorf("Load() APITimeout = %v, want 10s", cfg.APITimeout)
		}
		if cfg.CacheTTL != 5*time.Minute {
			t.Errorf("Load() CacheTTL = %v, want 5m", cfg.CacheTTL)
		}
		if cfg.OptionIndent != "  " {
			t.Errorf("Load() OptionIndent = %q, want two spaces", cfg.OptionIndent)
		}
		if cfg.DataBackend != "memory" {
			t.Errorf("Load() DataBackend = %v, want memory", cfg.DataBackend)
		}
		if !cfg.MetricsEnabled {
			t.Errorf("Load() MetricsEnabled = false, want true")
		}
		if cfg.ActorID != "" {
			t.Errorf("Load() ActorID = %q, want empty", cfg.ActorID)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("API_BASE_URL", "https://api.example.com")
		t.Setenv("API_TIMEOUT", "3s")
		t.Setenv("CATEGORY_CACHE_TTL", "30s")
		t.Setenv("OPTION_INDENT", "--")
		t.Setenv("DATA_BACKEND", "sqlite")
		t.Setenv("METRICS_ENABLED", "false")
		t.Setenv("RATE_LIMIT_RPS", "2.5")
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

		cfg := Load()
		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.APIBaseURL != "https://api.example.com" {
			t.Errorf("Load() APIBaseURL = %v", cfg.APIBaseURL)
		}
		if cfg.APITimeout != 3*time.Second {
			t.Errorf("Load() APITimeout = %v, want 3s", cfg.APITimeout)
		}
		if cfg.CacheTTL != 30*time.Second {
			t.Errorf("Load() CacheTTL = %v, want 30s", cfg.CacheTTL)
		}
		if cfg.OptionIndent != "--" {
			t.Errorf("Load() OptionIndent = %q, want --", cfg.OptionIndent)
		}
		if cfg.DataBackend != "sqlite" {
			t.Errorf("Load() DataBackend = %v, want sqlite", cfg.DataBackend)
		}
		if cfg.MetricsEnabled {
			t.Errorf("Load() MetricsEnabled = true, want false")
		}
		if cfg.RateLimitRPS != 2.5 {
			t.Errorf("Load() RateLimitRPS = %v, want 2.5", cfg.RateLimitRPS)
		}
		if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
			t.Errorf("Load() CORSOrigins = %q", cfg.CORSOrigins)
		}
	})

	t.Run("invalid values fall back to defaults", func(t *testing.T) {
		t.Setenv("API_TIMEOUT", "soon")
		t.Setenv("METRICS_ENABLED", "maybe")
		cfg := Load()
		if cfg.APITimeout != 10*time.Second {
			t.Errorf("Load() APITimeout = %v, want 10s", cfg.APITimeout)
		}
		if !cfg.MetricsEnabled {
			t.Errorf("Load() MetricsEnabled = false, want true")
		}
	})
}
