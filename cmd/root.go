// Package cmd provides the command-line interface for autotemplar.
//
// Configuration System:
//
//	Settings are resolved with the following precedence:
//	1. Command-line flags (--vault, --log-level, --port, ...) - highest priority
//	2. Individual environment variables (AUTOTEMPLAR_VAULT_PATH, ...)
//	3. The file named by --config or AUTOTEMPLAR_CONFIG_FILE
//	4. .autotemplar.yml in the current directory - lowest priority
//
// Environment Variables:
//
//	AUTOTEMPLAR_CONFIG_FILE: Path to custom configuration file
//	AUTOTEMPLAR_VAULT_PATH: Vault directory
//	AUTOTEMPLAR_SERVER_PORT: Preview server port
//	AUTOTEMPLAR_LOG_LEVEL: Log level
//	And the rest following the AUTOTEMPLAR_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/autotemplar/internal/config"
	"github.com/conneroisu/autotemplar/internal/logging"
	"github.com/conneroisu/autotemplar/internal/services"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "autotemplar",
	Short: "Show tag-matched templates inside markdown notes",
	Long: `autotemplar reads the tags declared in the front-matter of your notes and
shows the templates carrying the same tags, rendered, right below the
front-matter of the note you are viewing.

Templates are ordinary notes kept in one folder of the vault. Choose it with
"autotemplar settings set template-folder <folder>" or on the settings page
of the preview server.

Quick Start:
  autotemplar settings set template-folder templates
  autotemplar index                  Show which templates each tag selects
  autotemplar render notes/today.md  Print the block injected into a note
  autotemplar serve                  Browse the vault with live blocks`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .autotemplar.yml, can also use AUTOTEMPLAR_CONFIG_FILE env var)")
	flags.StringP("vault", "V", config.DefaultVaultPath, "vault directory")
	flags.StringP("log-level", "l", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", config.DefaultLogFormat, "log format (text, json)")

	_ = viper.BindPFlag("vault.path", flags.Lookup("vault"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
}

// initConfig points viper at the configuration file and the environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("AUTOTEMPLAR_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".autotemplar")
	}

	viper.SetEnvPrefix("AUTOTEMPLAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadApp loads the configuration and opens the vault. Logs go to the
// command's error stream.
func loadApp(cmd *cobra.Command) (*services.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	loggerConfig := cfg.LoggerConfig()
	loggerConfig.Output = cmd.ErrOrStderr()
	logger := logging.NewLogger(loggerConfig)

	app, err := services.NewApp(commandContext(cmd), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	return app, nil
}

// commandContext returns the command's context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
