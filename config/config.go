package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "airingcal.yaml"

// Config holds all airingcal configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Calendar CalendarConfig `yaml:"calendar"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins"` // extra CORS origins beyond local/private ones
	RateLimit      float64  `yaml:"rate_limit"`      // requests per second per client IP
	RateBurst      int      `yaml:"rate_burst"`
}

// UpstreamConfig configures the schedule API client.
type UpstreamConfig struct {
	BaseURL       string  `yaml:"base_url"`
	Timeout       string  `yaml:"timeout"`
	RetryAttempts uint    `yaml:"retry_attempts"`
	RetryDelay    string  `yaml:"retry_delay"`
	RateLimit     float64 `yaml:"rate_limit"` // outgoing requests per second
	RateBurst     int     `yaml:"rate_burst"`
}

// CalendarConfig configures month rounds and the session service.
type CalendarConfig struct {
	Timezone        string `yaml:"timezone"` // default viewer timezone, "Local" for the host zone
	MaxConcurrent   int    `yaml:"max_concurrent"`
	FetchTimeout    string `yaml:"fetch_timeout"`
	RefreshSchedule string `yaml:"refresh_schedule"`
	SessionTTL      string `yaml:"session_ttl"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text, json
	File       string `yaml:"file"`   // optional rotated log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:    ":8080",
			RateLimit: 10,
			RateBurst: 20,
		},
		Upstream: UpstreamConfig{
			BaseURL:       "http://localhost:8000",
			Timeout:       "15s",
			RetryAttempts: 3,
			RetryDelay:    "250ms",
			RateLimit:     4,
			RateBurst:     7,
		},
		Calendar: CalendarConfig{
			Timezone:        "Local",
			MaxConcurrent:   7,
			FetchTimeout:    "15s",
			RefreshSchedule: "@every 30m",
			SessionTTL:      "2h",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the YAML config at path from fsys, then applies environment
// overrides. A missing file yields the defaults. Variables from a .env file in
// the working directory are loaded first when present.
func Load(fsys afero.Fs, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath
	}

	data, err := afero.ReadFile(fsys, path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Return defaults if config file doesn't exist
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(fsys afero.Fs, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AIRINGCAL_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("AIRINGCAL_UPSTREAM_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("AIRINGCAL_TIMEZONE"); v != "" {
		c.Calendar.Timezone = v
	}
	if v := os.Getenv("AIRINGCAL_REFRESH_SCHEDULE"); v != "" {
		c.Calendar.RefreshSchedule = v
	}
	if v := os.Getenv("AIRINGCAL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AIRINGCAL_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("AIRINGCAL_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	if v := os.Getenv("AIRINGCAL_UPSTREAM_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.Upstream.RateLimit = f
		}
	}
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return errors.New("upstream.base_url is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for name, raw := range map[string]string{
		"upstream.timeout":       c.Upstream.Timeout,
		"upstream.retry_delay":   c.Upstream.RetryDelay,
		"calendar.fetch_timeout": c.Calendar.FetchTimeout,
		"calendar.session_ttl":   c.Calendar.SessionTTL,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
	}
	return nil
}

// Location resolves the default viewer timezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Calendar.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar.timezone %q: %w", name, err)
	}
	return loc, nil
}

// GetUpstreamTimeout returns the per-request timeout of the schedule client.
func (c *Config) GetUpstreamTimeout() time.Duration {
	return parseDurationOr(c.Upstream.Timeout, 15*time.Second)
}

// GetRetryDelay returns the initial delay between schedule client retries.
func (c *Config) GetRetryDelay() time.Duration {
	return parseDurationOr(c.Upstream.RetryDelay, 250*time.Millisecond)
}

// GetFetchTimeout returns the deadline given to each week fetch of a round.
func (c *Config) GetFetchTimeout() time.Duration {
	return parseDurationOr(c.Calendar.FetchTimeout, 15*time.Second)
}

// GetSessionTTL returns how long an idle calendar session is kept.
func (c *Config) GetSessionTTL() time.Duration {
	return parseDurationOr(c.Calendar.SessionTTL, 2*time.Hour)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
