package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Output   OutputConfig   `mapstructure:"output"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ScannerConfig holds function scanner configuration.
type ScannerConfig struct {
	MaxSourceBytes int `mapstructure:"max_source_bytes"` // 0 disables the limit
	Concurrency    int `mapstructure:"concurrency"`      // Files analysed in parallel
	CacheSize      int `mapstructure:"cache_size"`       // Function trees kept by content hash, 0 disables
}

// OutputConfig holds report output configuration.
type OutputConfig struct {
	Format string `mapstructure:"format"` // json, yaml, text
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	Schema         string `mapstructure:"schema"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the database connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Validate checks the settings needed to open a connection.
func (d DatabaseConfig) Validate() error {
	if d.User == "" {
		return errors.New("database.user is required")
	}
	if d.Name == "" {
		return errors.New("database.name is required")
	}
	if d.Port < 1 || d.Port > 65535 {
		return errors.New("database.port must be between 1 and 65535")
	}
	if d.MaxConnections < 0 {
		return errors.New("database.max_connections cannot be negative")
	}
	return nil
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Enabled       bool          `mapstructure:"enabled"`
}

// Validate checks the settings needed to connect.
func (n NATSConfig) Validate() error {
	if n.URL == "" {
		return errors.New("nats.url is required")
	}
	u, err := url.Parse(n.URL)
	if err != nil || u.Scheme != "nats" || u.Host == "" {
		return fmt.Errorf("nats.url must be a nats:// URL: %q", n.URL)
	}
	if n.MaxReconnects < 0 {
		return errors.New("nats.max_reconnects cannot be negative")
	}
	if n.ReconnectWait < 0 {
		return errors.New("nats.reconnect_wait cannot be negative")
	}
	return nil
}

// MetricsConfig holds OpenTelemetry metrics configuration.
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New creates a new Config instance from Viper. It panics on invalid configuration.
func New(v *viper.Viper) *Config {
	config, err := Load(v)
	if err != nil {
		panic(err)
	}
	return config
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var config Config

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid. Database and NATS settings
// are only checked by the commands that connect to them.
func (c *Config) Validate() error {
	if c.Scanner.Concurrency < 1 {
		return errors.New("scanner.concurrency must be at least 1")
	}

	if c.Scanner.MaxSourceBytes < 0 {
		return errors.New("scanner.max_source_bytes cannot be negative")
	}

	if c.Scanner.CacheSize < 0 {
		return errors.New("scanner.cache_size cannot be negative")
	}

	switch strings.ToLower(c.Output.Format) {
	case "json", "yaml", "text":
	default:
		return fmt.Errorf("output.format must be json, yaml or text, got %q", c.Output.Format)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.ServiceName == "" {
		return errors.New("metrics.service_name is required when metrics are enabled")
	}

	return nil
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	// Scanner defaults
	v.SetDefault("scanner.max_source_bytes", 10*1024*1024)
	v.SetDefault("scanner.concurrency", 4)
	v.SetDefault("scanner.cache_size", 256)

	// Output defaults
	v.SetDefault("output.format", "json")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "luascan")
	v.SetDefault("database.name", "luascan")
	v.SetDefault("database.schema", "luascan")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 10)

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.enabled", true)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.service_name", "luascan")

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
