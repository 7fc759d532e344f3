// Package config loads process configuration from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates every setting resolved once at startup.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Render    RenderConfig    `mapstructure:"render"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// DatabaseConfig contains the PostgreSQL connection URL.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RenderConfig locates templates, icons and the Typst compiler.
type RenderConfig struct {
	TemplateDir string        `mapstructure:"template_dir"`
	StaticDir   string        `mapstructure:"static_dir"`
	TypstBin    string        `mapstructure:"typst_bin"`
	Timeout     time.Duration `mapstructure:"timeout"`
	ScratchDir  string        `mapstructure:"scratch_dir"`
}

// AuthConfig contains token and password hashing settings.
type AuthConfig struct {
	JWTSecret          string `mapstructure:"jwt_secret"`
	JWTExpirationHours int    `mapstructure:"jwt_expiration_hours"`
	BcryptCost         int    `mapstructure:"bcrypt_cost"`
	PasswordPepper     string `mapstructure:"password_pepper"`
}

// RateLimitConfig contains per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	RendersPerMinute  int `mapstructure:"renders_per_minute"`
}

// ArchiveConfig contains S3-compatible storage settings for archiving
// rendered PDFs. Archiving is disabled when Endpoint is empty.
type ArchiveConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether PDFs should be archived.
func (a ArchiveConfig) Enabled() bool {
	return a.Endpoint != ""
}

// LogConfig selects the log level and output format ("json" or "text").
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables, layered over an
// optional config file (JSON, YAML or TOML by extension) and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("render.template_dir", "templates")
	v.SetDefault("render.static_dir", "static")
	v.SetDefault("render.typst_bin", "typst")
	v.SetDefault("render.timeout", 30*time.Second)
	v.SetDefault("render.scratch_dir", "")
	v.SetDefault("auth.jwt_expiration_hours", 24)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("rate_limit.requests_per_minute", 120)
	v.SetDefault("rate_limit.renders_per_minute", 10)
	v.SetDefault("archive.bucket", "resumes")
	v.SetDefault("archive.use_ssl", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"server.port":                    "PORT",
		"server.cors_origin":             "CORS_ORIGIN",
		"database.url":                   "DATABASE_URL",
		"render.template_dir":            "TEMPLATE_DIR",
		"render.static_dir":              "STATIC_DIR",
		"render.typst_bin":               "TYPST_BIN",
		"render.timeout":                 "RENDER_TIMEOUT",
		"render.scratch_dir":             "SCRATCH_DIR",
		"auth.jwt_secret":                "JWT_SECRET",
		"auth.jwt_expiration_hours":      "JWT_EXPIRATION_HOURS",
		"auth.bcrypt_cost":               "BCRYPT_COST",
		"auth.password_pepper":           "PASSWORD_PEPPER",
		"rate_limit.requests_per_minute": "RATE_LIMIT_PER_MINUTE",
		"rate_limit.renders_per_minute":  "RENDER_RATE_LIMIT_PER_MINUTE",
		"archive.endpoint":               "ARCHIVE_ENDPOINT",
		"archive.access_key_id":          "ARCHIVE_ACCESS_KEY_ID",
		"archive.secret_access_key":      "ARCHIVE_SECRET_ACCESS_KEY",
		"archive.bucket":                 "ARCHIVE_BUCKET",
		"archive.use_ssl":                "ARCHIVE_USE_SSL",
		"log.level":                      "LOG_LEVEL",
		"log.format":                     "LOG_FORMAT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}
	return nil
}

// Validate checks value ranges. Settings only some commands need, such as the
// database URL, are checked by ValidateServer.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: port out of range: %d", c.Server.Port)
	}
	if c.Render.TemplateDir == "" {
		return errors.New("config error: template directory is required")
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("config error: render timeout must be positive, got %s", c.Render.Timeout)
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.RendersPerMinute < 0 {
		return errors.New("config error: rate limits must be non-negative")
	}
	if err := c.Password().normalize(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.Archive.Enabled() {
		if c.Archive.AccessKeyID == "" || c.Archive.SecretAccessKey == "" {
			return errors.New("config error: archive credentials are required when ARCHIVE_ENDPOINT is set")
		}
		if c.Archive.Bucket == "" {
			return errors.New("config error: archive bucket is required")
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("config error: unknown log format %q", c.Log.Format)
	}
	return nil
}

// ValidateServer checks the settings required to serve the API.
func (c *Config) ValidateServer() error {
	if c.Database.URL == "" {
		return errors.New("config error: DATABASE_URL is required")
	}
	if _, err := c.JWT(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}
