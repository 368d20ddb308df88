package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brandtiboy/prototype-test/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Launch the moderator console",
	Long:  `Shows the running session live: current task, elapsed time, clicks, and results.`,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	app := tui.New(apiAddr)
	if err := app.Run(); err != nil {
		return fmt.Errorf("console error: %w", err)
	}
	return nil
}
