package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig   `json:"server" envPrefix:"TAGBOARD_SERVER_"`
	TagSource ServerConfig   `json:"tag_source" envPrefix:"TAGBOARD_TAGSOURCE_"`
	Source    SourceConfig   `json:"source" envPrefix:"TAGBOARD_SOURCE_"`
	Screen    ScreenConfig   `json:"screen" envPrefix:"TAGBOARD_SCREEN_"`
	Database  DatabaseConfig `json:"database" envPrefix:"TAGBOARD_DATABASE_"`
	Data      DataConfig     `json:"data" envPrefix:"TAGBOARD_DATA_"`
	Log       LogConfig      `json:"log" envPrefix:"TAGBOARD_LOG_"`
}

// ServerConfig represents a listen address
type ServerConfig struct {
	Port string `json:"port" env:"PORT" validate:"required,numeric"`
	Host string `json:"host" env:"HOST"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// SourceConfig describes the upstream tag source the screen reads from
type SourceConfig struct {
	BaseURL   string  `json:"base_url" env:"BASE_URL" validate:"required,http_url"`
	TimeoutMS int     `json:"timeout_ms" env:"TIMEOUT_MS" validate:"gt=0"`
	RateLimit float64 `json:"rate_limit" env:"RATE_LIMIT" validate:"gte=0"` // requests per second, 0 disables
	Burst     int     `json:"burst" env:"BURST" validate:"gte=0"`
}

// Timeout returns the per-request upstream timeout
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// ScreenConfig holds the tags screen settings
type ScreenConfig struct {
	PageSize     int `json:"page_size" env:"PAGE_SIZE" validate:"gte=1,lte=100"`
	DebounceMS   int `json:"debounce_ms" env:"DEBOUNCE_MS" validate:"gte=0"`
	FreshnessMS  int `json:"freshness_ms" env:"FRESHNESS_MS" validate:"gt=0"`
	GCMS         int `json:"gc_ms" env:"GC_MS" validate:"gt=0"`
	SessionTTLMS int `json:"session_ttl_ms" env:"SESSION_TTL_MS" validate:"gt=0"`
}

// Debounce returns the filter debounce delay
func (s ScreenConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// Freshness returns how long a cached page is served without refetching
func (s ScreenConfig) Freshness() time.Duration {
	return time.Duration(s.FreshnessMS) * time.Millisecond
}

// GC returns how long an unused cache entry is kept
func (s ScreenConfig) GC() time.Duration {
	return time.Duration(s.GCMS) * time.Millisecond
}

// SessionTTL returns how long an idle screen session is kept
func (s ScreenConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLMS) * time.Millisecond
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path string `json:"path" env:"PATH" validate:"required"`
}

// DataConfig represents data configuration
type DataConfig struct {
	RawDataFolder string `json:"raw_data_folder" env:"RAW_DATA_FOLDER"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `json:"level" env:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format string `json:"format" env:"FORMAT" validate:"oneof=json text"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8888",
			Host: "0.0.0.0",
		},
		TagSource: ServerConfig{
			Port: "3000",
			Host: "0.0.0.0",
		},
		Source: SourceConfig{
			BaseURL:   "http://localhost:3000",
			TimeoutMS: 10000,
			RateLimit: 10,
			Burst:     5,
		},
		Screen: ScreenConfig{
			PageSize:     10,
			DebounceMS:   1000,
			FreshnessMS:  60000,
			GCMS:         300000,
			SessionTTLMS: 1800000,
		},
		Database: DatabaseConfig{
			Path: "tagboard.db",
		},
		Data: DataConfig{
			RawDataFolder: "raw_data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a JSON file. Keys missing from the file keep
// their defaults; TAGBOARD_* environment variables override both.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.json"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return finish(config)
}

// LoadConfigWithDefaults loads config with fallback to defaults if file doesn't exist
func LoadConfigWithDefaults(configPath string) (*Config, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return finish(Default())
		}
		return nil, err
	}
	return config, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func finish(config *Config) (*Config, error) {
	if err := ParseEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
