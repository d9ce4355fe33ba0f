package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/engine"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [rule-id]",
	Short: "Evaluate governance rules against the data source",
	Long: `Evaluate one rule, or every registered rule when no rule ID is given.

Evaluation is read-only: findings are printed but no remediation is
proposed. Use "governor run" and the propose_remediation tool, or the
scheduled sweep, to act on findings.

Examples:
  # Evaluate every rule
  governor evaluate

  # Evaluate one rule
  governor evaluate detect_drift`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	var evals []*engine.Evaluation
	if len(args) == 1 {
		eval, err := rt.Engine().Evaluate(ctx, args[0])
		if err != nil {
			return err
		}
		evals = append(evals, eval)
	} else {
		var err error
		evals, err = rt.EvaluateAll(ctx)
		if err != nil {
			fmt.Printf("warning: %v\n", err)
		}
	}

	for _, eval := range evals {
		if len(eval.Findings) == 0 {
			fmt.Printf("%s: ok\n", eval.RuleID)
		} else {
			fmt.Printf("%s: %d finding(s)\n", eval.RuleID, len(eval.Findings))
			for _, f := range eval.Findings {
				fmt.Printf("  [%s] %s\n", f.Severity, f.Summary)
			}
		}
		for _, note := range eval.Notes {
			fmt.Printf("  note: %s\n", note)
		}
	}
	return nil
}
