package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// settingTemplateFolder is the only setting exposed by the settings command.
const settingTemplateFolder = "template-folder"

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change the vault settings",
	Long: `Read or change the settings stored in the vault.

Settings:
  template-folder   Folder containing the templates applied based on tags

Examples:
  autotemplar settings get template-folder
  autotemplar settings set template-folder autotemplates
  autotemplar settings set template-folder ""   # disable templates`,
}

var settingsGetCmd = &cobra.Command{
	Use:       "get <setting>",
	Short:     "Print a setting",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{settingTemplateFolder},
	RunE:      runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Change a setting",
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(2)(cmd, args); err != nil {
			return err
		}
		if args[0] != settingTemplateFolder {
			return fmt.Errorf("unknown setting %q", args[0])
		}
		return nil
	},
	RunE: runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	app, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Fprintln(cmd.OutOrStdout(), app.Controller.TemplatesFolder())
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	app, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Controller.SetTemplateFolder(commandContext(cmd), args[1]); err != nil {
		return err
	}

	folder := app.Controller.TemplatesFolder()
	out := cmd.OutOrStdout()
	if folder == "" {
		fmt.Fprintln(out, "Template folder cleared")
		return nil
	}
	fmt.Fprintf(out, "Template folder set to %s (%d templates, %d tags)\n",
		folder, app.Index.Templates(), len(app.Index.Tags()))
	return nil
}
