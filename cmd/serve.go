package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/autotemplar/internal/config"
	"github.com/conneroisu/autotemplar/internal/services"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Browse the vault with live template blocks",
	Long: `Start the preview server. Every note is shown with the templates its
tags select, and the block is refreshed in the browser whenever the note,
a template or the template folder setting changes.

Examples:
  autotemplar serve                  # Serve on localhost:8377
  autotemplar serve -p 9000          # Serve on another port
  autotemplar serve --no-watch       # Do not watch the vault for changes`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "Port to serve on")
	serveCmd.Flags().String("host", config.DefaultHost, "Host to bind to")
	serveCmd.Flags().Duration("debounce", config.DefaultDebounce, "Delay used to batch file changes")
	serveCmd.Flags().Bool("no-watch", false, "Don't watch the vault for changes")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("watcher.debounce", serveCmd.Flags().Lookup("debounce"))
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	noWatch, _ := cmd.Flags().GetBool("no-watch")

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := services.NewServeService(app)
	info := service.GetServerInfo()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Serving vault %s at %s\n", info.VaultRoot, info.ServerURL)
	if info.TemplatesFolder == "" {
		fmt.Fprintf(out, "No template folder configured, choose one at %s/settings\n", info.ServerURL)
	} else {
		fmt.Fprintf(out, "Templates folder: %s\n", info.TemplatesFolder)
	}

	if _, err := service.Serve(ctx, services.ServeOptions{NoWatch: noWatch}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
