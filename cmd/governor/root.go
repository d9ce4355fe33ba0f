package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "governor",
	Short: "Governor - closed-loop SDLC governance engine",
	Long: `Governor detects governance violations in SDLC data and routes their
remediation through an explicit approval gate.

It provides:
  - Rule evaluation over an operational store (drift, bottlenecks, staleness)
  - A proposal/approval/execution lifecycle with at-most-once side effects
  - An append-only audit trail of every detection and decision
  - Tool access over HTTP and MCP stdio`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
