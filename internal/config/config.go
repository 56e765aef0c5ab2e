package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Port     string `yaml:"port"`
	DataFile string `yaml:"data_file"`
	// DatabaseURL enables the PostgreSQL notification inbox when set.
	DatabaseURL string `yaml:"database_url"`

	BotToken       string `yaml:"bot_token"`
	PlatformAPIURL string `yaml:"platform_api_url"`
	WebhookSecret  string `yaml:"webhook_secret"`

	SweepStartDelay  time.Duration `yaml:"sweep_start_delay"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	GatewayTimeout   time.Duration `yaml:"gateway_timeout"`
	GatewayRateLimit float64       `yaml:"gateway_rate_limit"`
	GatewayBurst     int           `yaml:"gateway_burst"`

	SeedAdminID          int64 `yaml:"seed_admin_id"`
	BootstrapFirstCaller bool  `yaml:"bootstrap_first_caller"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Port:             "8080",
		DataFile:         "rental_data.json",
		PlatformAPIURL:   "https://api.telegram.org",
		SweepStartDelay:  10 * time.Second,
		SweepInterval:    60 * time.Second,
		GatewayTimeout:   10 * time.Second,
		GatewayRateLimit: 25,
		GatewayBurst:     5,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (CONFIG_FILE when path is empty; skipped when both are empty), then
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getEnv("CONFIG_FILE", "")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.DataFile = getEnv("DATA_FILE", c.DataFile)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.BotToken = getEnv("BOT_TOKEN", c.BotToken)
	c.PlatformAPIURL = getEnv("PLATFORM_API_URL", c.PlatformAPIURL)
	c.WebhookSecret = getEnv("WEBHOOK_SECRET", c.WebhookSecret)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	var errs []error
	c.SweepStartDelay, errs = getDuration("SWEEP_START_DELAY", c.SweepStartDelay, errs)
	c.SweepInterval, errs = getDuration("SWEEP_INTERVAL", c.SweepInterval, errs)
	c.GatewayTimeout, errs = getDuration("GATEWAY_TIMEOUT", c.GatewayTimeout, errs)
	c.GatewayRateLimit, errs = getParsed("GATEWAY_RATE_LIMIT", c.GatewayRateLimit, parseFloat, errs)
	c.GatewayBurst, errs = getParsed("GATEWAY_BURST", c.GatewayBurst, strconv.Atoi, errs)
	c.SeedAdminID, errs = getParsed("SEED_ADMIN_ID", c.SeedAdminID, parseInt64, errs)
	c.BootstrapFirstCaller, errs = getParsed("BOOTSTRAP_FIRST_CALLER", c.BootstrapFirstCaller, strconv.ParseBool, errs)
	return errors.Join(errs...)
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.DataFile == "" {
		errs = append(errs, errors.New("DATA_FILE must not be empty"))
	}
	if c.SweepStartDelay < 0 {
		errs = append(errs, errors.New("SWEEP_START_DELAY must not be negative"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	if c.GatewayRateLimit < 0 {
		errs = append(errs, errors.New("GATEWAY_RATE_LIMIT must not be negative"))
	}
	if c.SeedAdminID < 0 {
		errs = append(errs, errors.New("SEED_ADMIN_ID must not be negative"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL onto a slog level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger described by the configuration
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, errs []error) (time.Duration, []error) {
	return getParsed(key, defaultValue, time.ParseDuration, errs)
}

func getParsed[T any](key string, defaultValue T, parse func(string) (T, error), errs []error) (T, []error) {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue, errs
	}
	parsed, err := parse(strings.TrimSpace(value))
	if err != nil {
		return defaultValue, append(errs, fmt.Errorf("%s: %w", key, err))
	}
	return parsed, errs
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
