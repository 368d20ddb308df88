package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prototest",
	Short: "prototest - usability testing for static HTML prototypes",
	Long: `prototest turns a static HTML prototype into a moderated usability-testing
instrument: it hosts the prototype, walks a tester through a configured task
list, times and records each task, and ships the finished session to the
configured sinks.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7473", "Address of a running prototest server")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(resultsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
