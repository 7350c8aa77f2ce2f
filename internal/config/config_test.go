package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/autotemplar/internal/logging"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults",
			setup: func(v *viper.Viper) {},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ".", cfg.Vault.Path)
				assert.Equal(t, ".autotemplar/data.json", cfg.Vault.SettingsFile)
				assert.Equal(t, 150*time.Millisecond, cfg.Watcher.Debounce)
				assert.Equal(t, "localhost", cfg.Server.Host)
				assert.Equal(t, 8377, cfg.Server.Port)
				assert.Equal(t, "info", cfg.Log.Level)
				assert.Equal(t, "text", cfg.Log.Format)
			},
		},
		{
			name: "registered defaults",
			setup: func(v *viper.Viper) {
				SetDefaults(v)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 150*time.Millisecond, cfg.Watcher.Debounce)
				assert.Equal(t, 8377, cfg.Server.Port)
			},
		},
		{
			name: "custom values",
			setup: func(v *viper.Viper) {
				v.Set("vault.path", "/notes")
				v.Set("watcher.debounce", "300ms")
				v.Set("server.host", "0.0.0.0")
				v.Set("server.port", 9000)
				v.Set("log.level", "DEBUG")
				v.Set("log.format", "json")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/notes", cfg.Vault.Path)
				assert.Equal(t, 300*time.Millisecond, cfg.Watcher.Debounce)
				assert.Equal(t, "0.0.0.0:9000", cfg.Address())
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "json", cfg.Log.Format)
			},
		},
		{
			name: "zero port is allowed",
			setup: func(v *viper.Viper) {
				v.Set("server.port", 0)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0, cfg.Server.Port)
			},
		},
		{
			name: "invalid port type",
			setup: func(v *viper.Viper) {
				v.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "port out of range",
			setup: func(v *viper.Viper) {
				v.Set("server.port", 70000)
			},
			expectError: true,
		},
		{
			name: "unknown log level",
			setup: func(v *viper.Viper) {
				v.Set("log.level", "verbose")
			},
			expectError: true,
		},
		{
			name: "unknown log format",
			setup: func(v *viper.Viper) {
				v.Set("log.format", "xml")
			},
			expectError: true,
		},
		{
			name: "settings file escaping the vault",
			setup: func(v *viper.Viper) {
				v.Set("vault.settings_file", "../outside.json")
			},
			expectError: true,
		},
		{
			name: "negative debounce",
			setup: func(v *viper.Viper) {
				v.Set("watcher.debounce", "-1s")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			cfg, err := LoadFrom(v)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadUsesGlobalViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("server.port", 8080)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".autotemplar.yml")
	content := "vault:\n  path: " + dir + "\n  settings_file: state/settings.json\nwatcher:\n  debounce: 1s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Watcher.Debounce)
	assert.Equal(t, filepath.Join(dir, "state", "settings.json"), cfg.SettingsPath())
}

func TestSettingsPath(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Path: "/vault", SettingsFile: ".autotemplar/data.json"}}
	assert.Equal(t, filepath.Join("/vault", ".autotemplar", "data.json"), cfg.SettingsPath())

	cfg.Vault.SettingsFile = "/etc/autotemplar.json"
	assert.Equal(t, "/etc/autotemplar.json", cfg.SettingsPath())
}

func TestLoggerConfig(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "warn", Format: "json"}}
	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestValidateConfigWithDetails(t *testing.T) {
	cfg := &Config{
		Vault:   VaultConfig{Path: filepath.Join(t.TempDir(), "missing"), SettingsFile: DefaultSettingsFile},
		Watcher: WatcherConfig{Debounce: time.Minute},
		Server:  ServerConfig{Host: "localhost", Port: 80},
		Log:     LogConfig{Level: "info", Format: "text"},
	}

	result := ValidateConfigWithDetails(cfg)
	assert.True(t, result.Valid)
	assert.False(t, result.HasErrors())
	require.True(t, result.HasWarnings())

	fields := make([]string, 0, len(result.Warnings))
	for _, warning := range result.Warnings {
		fields = append(fields, warning.Field)
	}
	assert.ElementsMatch(t, []string{"vault.path", "watcher.debounce", "server.port"}, fields)
	assert.Contains(t, result.String(), "Validation warnings")

	cfg.Server.Host = "evil;host"
	result = ValidateConfigWithDetails(cfg)
	assert.False(t, result.Valid)
	assert.Equal(t, "server.host", result.Errors[0].Field)
	assert.Contains(t, result.Errors[0].Error(), "server.host")
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{path: ".autotemplar/data.json"},
		{path: "settings.json"},
		{path: "", wantErr: true},
		{path: "../x.json", wantErr: true},
		{path: "a/../../x.json", wantErr: true},
		{path: "a;b.json", wantErr: true},
		{path: "a..b.json"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
