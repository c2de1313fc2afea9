package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Workspace WorkspaceConfig `toml:"workspace"`
	Export    ExportConfig    `toml:"export"`
	Upload    UploadConfig    `toml:"upload"`
	Database  DatabaseConfig  `toml:"database"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig locates the annotation server.
type ServerConfig struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the request timeout, zero meaning none.
func (s ServerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// WorkspaceConfig holds annotation workspace defaults.
type WorkspaceConfig struct {
	AutoSave         bool   `toml:"auto_save"`
	DefaultLabel     string `toml:"default_label"`
	SingleObjectMode bool   `toml:"single_object_mode"`
}

// ExportConfig holds export screen defaults.
type ExportConfig struct {
	DefaultFormat  string `toml:"default_format"`
	DefaultQuality int    `toml:"default_quality"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
}

// PollInterval returns the status poll period, 500ms when unset.
func (e ExportConfig) PollInterval() time.Duration {
	if e.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(e.PollIntervalMS) * time.Millisecond
}

// UploadConfig holds upload wizard limits.
type UploadConfig struct {
	MaxSizeMB       int     `toml:"max_size_mb"`
	DefaultInterval float64 `toml:"default_interval"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig controls the file logger used by the TUI.
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// LoadConfig reads a TOML file at path and overlays it on [DefaultConfig].
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports values the client cannot work with.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("%w: server.base_url is required", ErrInvalidConfig)
	}
	if q := c.Export.DefaultQuality; q < 1 || q > 100 {
		return fmt.Errorf("%w: export.default_quality must be within 1..100, got %d", ErrInvalidConfig, q)
	}
	if c.Upload.MaxSizeMB <= 0 {
		return fmt.Errorf("%w: upload.max_size_mb must be positive", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
