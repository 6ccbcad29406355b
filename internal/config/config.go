package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Player  PlayerConfig  `mapstructure:"player"`
	Cache   CacheConfig   `mapstructure:"cache"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the Jellyfin server session
type ServerConfig struct {
	URL      string `mapstructure:"url"`
	Token    string `mapstructure:"token"`
	UserID   string `mapstructure:"user_id"`
	Username string `mapstructure:"username"` // display only
}

// PlayerConfig holds the audio backend configuration
type PlayerConfig struct {
	Command string   `mapstructure:"command"` // empty = "mpv" from PATH
	Args    []string `mapstructure:"args"`    // extra flags appended to the invocation
}

// CacheConfig holds local cache configuration
type CacheConfig struct {
	Dir             string `mapstructure:"dir"`              // empty = default path
	Disabled        bool   `mapstructure:"disabled"`         // memory-only mode
	ArtworkCapacity int    `mapstructure:"artwork_capacity"` // in-memory artwork entries
	ArtworkMaxDays  int    `mapstructure:"artwork_max_days"` // persistent artwork expiry
}

// UIConfig holds UI configuration
type UIConfig struct {
	Theme       string `mapstructure:"theme"`
	GridColumns int    `mapstructure:"grid_columns"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Command: "mpv",
		},
		Cache: CacheConfig{
			Dir:             defaultCachePath(),
			ArtworkCapacity: 50,
			ArtworkMaxDays:  7,
		},
		UI: UIConfig{
			Theme:       "default",
			GridColumns: 4,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tempo", "tempo.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "tempo", "tempo.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tempo")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "tempo")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "tempo", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "tempo", "cache")
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("TEMPO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the config file
func Save(cfg *Config) error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to keep snake_case key names
	viper.Set("server.url", cfg.Server.URL)
	viper.Set("server.token", cfg.Server.Token)
	viper.Set("server.user_id", cfg.Server.UserID)
	viper.Set("server.username", cfg.Server.Username)

	viper.Set("player.command", cfg.Player.Command)
	viper.Set("player.args", cfg.Player.Args)

	viper.Set("cache.dir", cfg.Cache.Dir)
	viper.Set("cache.disabled", cfg.Cache.Disabled)
	viper.Set("cache.artwork_capacity", cfg.Cache.ArtworkCapacity)
	viper.Set("cache.artwork_max_days", cfg.Cache.ArtworkMaxDays)

	viper.Set("ui.theme", cfg.UI.Theme)
	viper.Set("ui.grid_columns", cfg.UI.GridColumns)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true when a server session is present
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}

// ClearServerConfig removes the server session from the config file
// while preserving everything else. Used on logout.
func ClearServerConfig() error {
	viper.Set("server.url", "")
	viper.Set("server.token", "")
	viper.Set("server.user_id", "")
	viper.Set("server.username", "")

	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CachePath returns the configured cache directory, falling back to
// the default.
func (c *Config) CachePath() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return defaultCachePath()
}

// ClearCache removes all cached data on disk
func ClearCache(dir string) error {
	if dir == "" {
		dir = defaultCachePath()
	}
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
