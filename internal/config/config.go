// Package config provides configuration management for autotemplar using
// Viper for flexible loading from files, environment variables, and
// command-line flags.
//
// The configuration covers where the vault lives, where its persisted
// settings are kept, how file changes are debounced, where the preview
// server listens, and how logs are written. Environment variables use the
// AUTOTEMPLAR_ prefix.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/autotemplar/internal/logging"
)

const (
	DefaultVaultPath    = "."
	DefaultSettingsFile = ".autotemplar/data.json"
	DefaultDebounce     = 150 * time.Millisecond
	DefaultHost         = "localhost"
	DefaultPort         = 8377
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

type Config struct {
	Vault   VaultConfig   `mapstructure:"vault" yaml:"vault"`
	Watcher WatcherConfig `mapstructure:"watcher" yaml:"watcher"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

type VaultConfig struct {
	Path         string `mapstructure:"path" yaml:"path"`
	SettingsFile string `mapstructure:"settings_file" yaml:"settings_file"`
}

type WatcherConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("vault.path", DefaultVaultPath)
	v.SetDefault("vault.settings_file", DefaultSettingsFile)
	v.SetDefault("watcher.debounce", DefaultDebounce)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, filling unset values with
// defaults, and validates it.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Vault.Path == "" {
		config.Vault.Path = DefaultVaultPath
	}
	if config.Vault.SettingsFile == "" {
		config.Vault.SettingsFile = DefaultSettingsFile
	}
	if !v.IsSet("watcher.debounce") {
		config.Watcher.Debounce = DefaultDebounce
	}
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if !v.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}
	config.Log.Level = strings.ToLower(config.Log.Level)
	config.Log.Format = strings.ToLower(config.Log.Format)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SettingsPath returns the settings file location. A relative settings file
// is resolved against the vault.
func (c *Config) SettingsPath() string {
	if filepath.IsAbs(c.Vault.SettingsFile) {
		return c.Vault.SettingsFile
	}
	return filepath.Join(c.Vault.Path, c.Vault.SettingsFile)
}

// Address returns the preview server listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LoggerConfig builds the logger configuration.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		lc.Level = level
	}
	lc.Format = c.Log.Format
	return lc
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	result := ValidateConfigWithDetails(config)
	if result.HasErrors() {
		first := result.Errors[0]
		return &first
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'", "\x00"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
