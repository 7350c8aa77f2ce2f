package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/autotemplar/internal/services"
)

var indexOutput string

var indexCmd = &cobra.Command{
	Use:     "index",
	Aliases: []string{"i"},
	Short:   "Rebuild and print the tag index",
	Long: `Scan the template folder and print, for every tag, the templates that
declare it. Templates whose front-matter could not be read are listed
as issues; they contribute no tags.

Examples:
  autotemplar index              # Table output
  autotemplar index -o json      # JSON output
  autotemplar index -o yaml      # YAML output`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	addOutputFlag(indexCmd, &indexOutput)
}

func runIndex(cmd *cobra.Command, args []string) error {
	app, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.IndexReport(commandContext(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(indexOutput) {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(report)
	case "table":
		return outputIndexTable(out, report)
	default:
		return fmt.Errorf("unsupported format: %s", indexOutput)
	}
}

func outputIndexTable(out io.Writer, report *services.IndexReport) error {
	if report.Folder == "" {
		fmt.Fprintln(out, "No template folder configured.")
		fmt.Fprintln(out, "Set one with: autotemplar settings set template-folder <folder>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TAG\tTEMPLATES")
	fmt.Fprintln(w, "---\t---------")
	for _, entry := range report.Entries {
		fmt.Fprintf(w, "%s\t%s\n", entry.Tag, strings.Join(entry.Templates, ", "))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nFolder: %s, %d templates, %d tags\n", report.Folder, report.Templates, len(report.Entries))

	if len(report.Issues) > 0 {
		fmt.Fprintln(out, "\nIssues:")
		for _, issue := range report.Issues {
			fmt.Fprintf(out, "  [%s] %s: %s\n", issue.Severity, issue.Path, issue.Message)
		}
	}
	return nil
}
