package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

const defaultRenderTimeout = 10 * time.Second

var (
	renderTimeout time.Duration
	renderStdin   bool
)

var renderCmd = &cobra.Command{
	Use:     "render <note>",
	Aliases: []string{"r"},
	Short:   "Print the template block injected into a note",
	Long: `Open a note, match its tags against the template index and print the
rendered HTML of the templates that would be shown below its front-matter.
Nothing is printed when no template matches or the note is itself a
template.

With --stdin the note's content is read from standard input instead of the
vault, as if it had been saved at the given path. Nothing is written.

Examples:
  autotemplar render notes/standup.md
  autotemplar render journal/2024-01-01.md --timeout 30s
  cat draft.md | autotemplar render notes/draft.md --stdin`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().DurationVar(&renderTimeout, "timeout", defaultRenderTimeout, "How long to wait for the block to render")
	renderCmd.Flags().BoolVar(&renderStdin, "stdin", false, "Read the note content from standard input")
}

func runRender(cmd *cobra.Command, args []string) error {
	if err := validateNotePath(args[0]); err != nil {
		return fmt.Errorf("invalid note: %w", err)
	}

	app, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(commandContext(cmd), renderTimeout)
	defer cancel()

	var html string
	if renderStdin {
		content, readErr := io.ReadAll(cmd.InOrStdin())
		if readErr != nil {
			return fmt.Errorf("reading note from stdin: %w", readErr)
		}
		html, err = app.RenderSource(ctx, args[0], string(content))
	} else {
		html, err = app.RenderNote(ctx, args[0])
	}
	if err != nil {
		return err
	}
	if html != "" {
		fmt.Fprintln(cmd.OutOrStdout(), html)
	}
	return nil
}
