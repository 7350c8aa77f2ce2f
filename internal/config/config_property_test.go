//go:build property
// +build property

package config

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/viper"
)

// TestConfigurationProperties tests configuration loading and validation properties
func TestConfigurationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: Ports inside the valid range always load unchanged
	properties.Property("valid ports load", prop.ForAll(
		func(port int, level string) bool {
			v := viper.New()
			v.Set("server.port", port)
			v.Set("log.level", level)
			cfg, err := LoadFrom(v)
			return err == nil && cfg.Server.Port == port && cfg.Log.Level == level
		},
		gen.IntRange(0, 65535),
		gen.OneConstOf("debug", "info", "warn", "error"),
	))

	// Property: Ports outside the valid range are always rejected
	properties.Property("invalid ports rejected", prop.ForAll(
		func(port int) bool {
			v := viper.New()
			v.Set("server.port", port)
			_, err := LoadFrom(v)
			return err != nil
		},
		gen.OneGenOf(gen.IntRange(-100000, -1), gen.IntRange(65536, 200000)),
	))

	// Property: Settings files that climb out of the vault are rejected
	properties.Property("traversal rejected", prop.ForAll(
		func(depth int, name string) bool {
			path := strings.Repeat("../", depth) + name + ".json"
			return validatePath(path) != nil
		},
		gen.IntRange(1, 5),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	// Property: Any non-negative debounce round-trips through viper
	properties.Property("debounce round trip", prop.ForAll(
		func(ms int) bool {
			v := viper.New()
			v.Set("watcher.debounce", fmt.Sprintf("%dms", ms))
			cfg, err := LoadFrom(v)
			return err == nil && cfg.Watcher.Debounce == time.Duration(ms)*time.Millisecond
		},
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}
