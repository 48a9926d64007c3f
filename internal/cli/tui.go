package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkweon/searchlayer/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [files...]",
	Short: "Start interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := tui.New(getClient(), cfg, args...)
		if err := app.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}
