package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/conneroisu/autotemplar/internal/logging"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", issue.Field, issue.Message))
			for _, suggestion := range issue.Suggestions {
				builder.WriteString(fmt.Sprintf("      hint: %s\n", suggestion))
			}
		}
	}

	write("Validation errors", vr.Errors)
	write("Validation warnings", vr.Warnings)
	return builder.String()
}

// ValidateConfigWithDetails performs validation with detailed feedback.
// Problems that keep autotemplar from running are errors; anything it can
// recover from at runtime is a warning.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateVaultConfigDetails(&config.Vault, result)
	validateWatcherConfigDetails(&config.Watcher, result)
	validateServerConfigDetails(&config.Server, result)
	validateLogConfigDetails(&config.Log, result)

	result.Valid = !result.HasErrors()
	return result
}

func validateVaultConfigDetails(config *VaultConfig, result *ValidationResult) {
	if strings.TrimSpace(config.Path) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "vault.path",
			Value:       config.Path,
			Message:     "vault path cannot be empty",
			Suggestions: []string{"Use '.' for the current directory"},
		})
	} else if info, err := os.Stat(config.Path); err != nil || !info.IsDir() {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "vault.path",
			Value:   config.Path,
			Message: "vault directory does not exist",
			Suggestions: []string{
				"Create the directory or point --vault at an existing one",
			},
		})
	}

	if filepath.IsAbs(config.SettingsFile) {
		return
	}
	if err := validatePath(config.SettingsFile); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "vault.settings_file",
			Value:   config.SettingsFile,
			Message: err.Error(),
			Suggestions: []string{
				"Keep the settings file inside the vault, e.g. " + DefaultSettingsFile,
				"Use an absolute path to store it elsewhere",
			},
		})
	}
}

func validateWatcherConfigDetails(config *WatcherConfig, result *ValidationResult) {
	if config.Debounce < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "watcher.debounce",
			Value:       config.Debounce,
			Message:     "debounce delay cannot be negative",
			Suggestions: []string{"Use a delay such as 150ms"},
		})
	} else if config.Debounce > 10*time.Second {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:       "watcher.debounce",
			Value:       config.Debounce,
			Message:     "long debounce delays make the preview feel unresponsive",
			Suggestions: []string{"Delays between 50ms and 500ms work well"},
		})
	}
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	// Port 0 asks the system for a free port.
	if config.Port < 0 || config.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{
				"Use a port between 1024-65535 for non-privileged access",
				"Port 0 allows system to assign an available port",
			},
		})
	} else if config.Port > 0 && config.Port < 1024 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:       "server.port",
			Value:       config.Port,
			Message:     "port below 1024 requires elevated privileges",
			Suggestions: []string{"Consider using a port above 1024"},
		})
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use 'localhost' for local use",
					"Use a valid IP address or hostname",
				},
			})
		}
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "log.level",
			Value:       config.Level,
			Message:     err.Error(),
			Suggestions: []string{"Available levels: debug, info, warn, error"},
		})
	}

	validFormats := []string{"text", "json"}
	if !contains(validFormats, config.Format) {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "log.format",
			Value:       config.Format,
			Message:     fmt.Sprintf("unknown log format '%s'", config.Format),
			Suggestions: []string{"Available formats: " + strings.Join(validFormats, ", ")},
		})
	}
}

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
