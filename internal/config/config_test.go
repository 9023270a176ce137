package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allVars = []string{
	"PORT", "DB_PATH", "JWT_SECRET", "TOKEN_TTL", "BCRYPT_COST", "MAX_UPLOAD_BYTES",
	"LOG_LEVEL", "CORS_ALLOWED_ORIGINS", "SHUTDOWN_TIMEOUT",
}

// clearEnv unsets every variable Config reads and restores them after the test.
// t.Setenv registers the restore; os.Unsetenv then removes the variable, since
// cleanenv treats a set-but-empty variable as a value to parse.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

const testSecret = "test-secret-at-least-16-chars!!"

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
	if cfg.DBPath != "data/timecapsule.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.TokenTTL != 7*24*time.Hour {
		t.Errorf("TokenTTL = %v, want 168h", cfg.TokenTTL)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 10<<20)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.Addr() != ":5000" {
		t.Errorf("Addr() = %q, want :5000", cfg.Addr())
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "8081")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,https://capsule.example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8081 {
		t.Errorf("Port = %d, want 8081", cfg.Port)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.TokenTTL)
	}
	level, err := cfg.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("SlogLevel() = (%v, %v), want debug", level, err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Errorf("CORSAllowedOrigins = %v, want 2 origins", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "JWT_SECRET=" + testSecret + "\nPORT=6000\nDB_PATH=:memory:\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 6000 {
		t.Errorf("Port = %d, want 6000", cfg.Port)
	}
	if cfg.DBPath != ":memory:" {
		t.Errorf("DBPath = %q, want :memory:", cfg.DBPath)
	}
	if cfg.JWTSecret != testSecret {
		t.Errorf("JWTSecret not read from file")
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	clearEnv(t)

	if _, err := Load(""); err == nil {
		t.Fatal("Load() should fail without JWT_SECRET")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:            5000,
			DBPath:          ":memory:",
			JWTSecret:       testSecret,
			TokenTTL:        time.Hour,
			BcryptCost:      10,
			MaxUploadBytes:  1024,
			LogLevel:        "info",
			ShutdownTimeout: time.Second,
		}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"port zero", func(c *Config) { c.Port = 0 }, "PORT"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "PORT"},
		{"empty db path", func(c *Config) { c.DBPath = "" }, "DB_PATH"},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }, "TOKEN_TTL"},
		{"cost too low", func(c *Config) { c.BcryptCost = 3 }, "BCRYPT_COST"},
		{"cost too high", func(c *Config) { c.BcryptCost = 32 }, "BCRYPT_COST"},
		{"zero upload limit", func(c *Config) { c.MaxUploadBytes = 0 }, "MAX_UPLOAD_BYTES"},
		{"zero shutdown", func(c *Config) { c.ShutdownTimeout = 0 }, "SHUTDOWN_TIMEOUT"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}

func TestUsage_ListsVariables(t *testing.T) {
	text := Usage()
	for _, k := range []string{"JWT_SECRET", "PORT", "MAX_UPLOAD_BYTES"} {
		if !strings.Contains(text, k) {
			t.Errorf("Usage() does not mention %s", k)
		}
	}
}
