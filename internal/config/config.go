// Package config loads the server configuration from the environment.
//
// WHY CLEANENV?
// Reading env vars by hand means one os.Getenv + strconv + default per field.
// cleanenv reads struct tags instead: `env` names the variable, `env-default`
// supplies the fallback and `env-required` fails loading when it is unset.
// Durations ("30s", "168h") and slices ("a,b") are parsed for us.
//
// LOAD ORDER:
//  1. If a .env file exists at the given path, its values are exported into the
//     process environment and then read (cleanenv.ReadConfig)
//  2. Otherwise only the process environment is read (cleanenv.ReadEnv)
//  3. Validate checks ranges the tags cannot express
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the complete server configuration.
type Config struct {
	Port               int           `env:"PORT" env-default:"5000" env-description:"HTTP listen port"`
	DBPath             string        `env:"DB_PATH" env-default:"data/timecapsule.db" env-description:"SQLite database file, or :memory:"`
	JWTSecret          string        `env:"JWT_SECRET" env-required:"true" env-description:"HMAC secret for bearer tokens, at least 16 characters"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" env-default:"168h" env-description:"lifetime of issued tokens"`
	BcryptCost         int           `env:"BCRYPT_COST" env-default:"10" env-description:"bcrypt work factor (4-31)"`
	MaxUploadBytes     int64         `env:"MAX_UPLOAD_BYTES" env-default:"10485760" env-description:"maximum capsule request body size"`
	LogLevel           string        `env:"LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:"," env-description:"comma separated list of allowed origins"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s" env-description:"grace period for in-flight requests on shutdown"`
}

// Load reads the configuration. envFile may point at a .env file; a missing
// file is not an error, the environment alone is used then.
func Load(envFile string) (*Config, error) {
	var cfg Config

	if envFile != "" && fileExists(envFile) {
		if err := cleanenv.ReadConfig(envFile, &cfg); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", envFile, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: reading environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	switch {
	case len(c.JWTSecret) < 16:
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	case c.DBPath == "":
		return errors.New("config: DB_PATH must not be empty")
	case c.TokenTTL <= 0:
		return errors.New("config: TOKEN_TTL must be positive")
	case c.BcryptCost < 4 || c.BcryptCost > 31:
		return fmt.Errorf("config: BCRYPT_COST %d out of range [4, 31]", c.BcryptCost)
	case c.MaxUploadBytes <= 0:
		return errors.New("config: MAX_UPLOAD_BYTES must be positive")
	case c.ShutdownTimeout <= 0:
		return errors.New("config: SHUTDOWN_TIMEOUT must be positive")
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Usage returns a description of every supported variable, for --help output.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
