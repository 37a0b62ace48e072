// Package config loads adboard settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-adboard/components/dashboard"
	"github.com/goliatone/go-adboard/pkg/statsapi"
)

// Environment variables that override file values.
const (
	EnvToken   = "ADBOARD_TOKEN"
	EnvBaseURL = "ADBOARD_BASE_URL"
)

// Config captures runtime settings for the CLI and HTTP server.
type Config struct {
	BaseURL       string           `yaml:"base_url"`
	Token         string           `yaml:"token"`
	Timezone      string           `yaml:"timezone"`
	Locale        string           `yaml:"locale"`
	DefaultPeriod dashboard.Period `yaml:"default_period"`
	HTTPTimeout   time.Duration    `yaml:"http_timeout"`
	RateLimit     float64          `yaml:"rate_limit"`
	RateBurst     int              `yaml:"rate_burst"`
	LogLevel      string           `yaml:"log_level"`
	ListenAddr    string           `yaml:"listen_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:       statsapi.DefaultBaseURL,
		Timezone:      "UTC",
		Locale:        dashboard.DefaultLocale,
		DefaultPeriod: dashboard.DefaultPeriod,
		HTTPTimeout:   10 * time.Second,
		RateLimit:     10,
		RateBurst:     5,
		LogLevel:      "info",
		ListenAddr:    ":8080",
	}
}

// Load reads path when non-empty, applies env overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: open %s: %w", path, err)
		}
		defer f.Close()
		if cfg, err = Decode(f); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses YAML over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvToken); ok && v != "" {
		c.Token = v
	}
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		c.BaseURL = v
	}
}

// Validate checks that every field is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("config: base_url is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, ok := c.DefaultPeriod.Days(); !ok {
		return fmt.Errorf("config: default_period %q is not a preset", c.DefaultPeriod)
	}
	if c.HTTPTimeout < 0 {
		return errors.New("config: http_timeout must not be negative")
	}
	if c.RateLimit < 0 {
		return errors.New("config: rate_limit must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Level parses log_level.
func (c Config) Level() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("config: log_level: %w", err)
	}
	return level, nil
}

// Logger builds a production zap logger at the configured level.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// HTTP returns the REST client settings derived from the config.
func (c Config) HTTP(session statsapi.Session, logger *zap.Logger) statsapi.HTTPConfig {
	return statsapi.HTTPConfig{
		BaseURL:   c.BaseURL,
		Session:   session,
		Timeout:   c.HTTPTimeout,
		RateLimit: c.RateLimit,
		Burst:     c.RateBurst,
		Logger:    logger,
	}
}
