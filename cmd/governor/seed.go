package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demonstration fixtures into the data source",
	Long: `Load a small SDLC snapshot into the configured data source: deployed
projects with and without audit records, and a review queue deep enough
to trip the builtin rules.

Only persistent backends make sense here; seeding the memory backend
populates a store that vanishes when the command exits.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := seed.Apply(ctx, rt.DataSource); err != nil {
		return err
	}
	fmt.Println("✓ Fixtures loaded")
	return nil
}
