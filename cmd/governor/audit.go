package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/audit"
)

var auditFlags struct {
	actionID  string
	eventType string
	limit     int
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the append-only audit trail",
	Long: `Query audit entries, ordered oldest first.

Examples:
  # Everything
  governor audit

  # One action's history
  governor audit --action 0198f2c1-...

  # All rejections
  governor audit --event rejected`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditFlags.actionID, "action", "", "filter by action ID")
	auditCmd.Flags().StringVar(&auditFlags.eventType, "event", "", "filter by event type")
	auditCmd.Flags().IntVar(&auditFlags.limit, "limit", 0, "maximum entries (0 for all)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	entries, err := rt.Audit.Query(ctx, &audit.Query{
		ActionID:  auditFlags.actionID,
		EventType: audit.EventType(auditFlags.eventType),
		Limit:     auditFlags.limit,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no entries")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %-22s actor=%s", e.Timestamp.Format(time.RFC3339), e.EventType, e.ActorID)
		if e.ActionID != "" {
			fmt.Printf(" action=%s", e.ActionID)
		}
		if e.BeforeState != "" || e.AfterState != "" {
			fmt.Printf(" %s->%s", e.BeforeState, e.AfterState)
		}
		if e.Detail != "" {
			fmt.Printf("  %s", e.Detail)
		}
		fmt.Println()
	}
	return nil
}
