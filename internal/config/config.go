// Package config provides configuration structures and loading logic for tracestack.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the tracestack server.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Collector CollectorConfig `mapstructure:"collector"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Layout    LayoutConfig    `mapstructure:"layout"`
}

// AppConfig defines application-level settings such as host and port.
type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// CollectorConfig defines connection settings for the trace query backend.
type CollectorConfig struct {
	URL         string `mapstructure:"url"`
	Timeout     string `mapstructure:"timeout"`
	SearchLimit int    `mapstructure:"search_limit"`
}

// CacheConfig defines the local SQLite cache of fetched span batches.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	TTL     string `mapstructure:"ttl"`
}

// LayoutConfig defines presentation constants for the stack engine.
type LayoutConfig struct {
	DefaultWidth float64  `mapstructure:"default_width"`
	MaxWidth     float64  `mapstructure:"max_width"`
	LaneHeight   int      `mapstructure:"lane_height"`
	ProximityPx  float64  `mapstructure:"proximity_px"`
	Palette      []string `mapstructure:"palette"`
	Timezone     string   `mapstructure:"timezone"`
}

// GetTimeoutDuration parses the configured string timeout into a time.Duration.
func (c *CollectorConfig) GetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetTTLDuration returns how long a cached batch stays fresh
func (c *CacheConfig) GetTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	if d == 0 {
		return 10 * time.Minute
	}
	return d
}

// GetLocation resolves the configured timezone, falling back to UTC.
func (c *LayoutConfig) GetLocation() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps log_level onto a slog.Level
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration from config.yaml or environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tracestack")

	// Allow environment variables to override config
	v.SetEnvPrefix("TRACESTACK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("collector.url", "http://localhost:12800")
	v.SetDefault("collector.timeout", "30s")
	v.SetDefault("collector.search_limit", 20)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "./data/tracestack.db")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("layout.default_width", 1200)
	v.SetDefault("layout.max_width", 10000)
	v.SetDefault("layout.lane_height", 36)
	v.SetDefault("layout.proximity_px", 10)
	v.SetDefault("layout.timezone", "UTC")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Layout.DefaultWidth <= 0 {
		return nil, fmt.Errorf("layout.default_width must be positive, got %v", cfg.Layout.DefaultWidth)
	}
	if cfg.Layout.MaxWidth < cfg.Layout.DefaultWidth {
		return nil, fmt.Errorf("layout.max_width %v is below layout.default_width %v", cfg.Layout.MaxWidth, cfg.Layout.DefaultWidth)
	}

	return &cfg, nil
}
