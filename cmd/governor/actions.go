package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
)

var actionsFlags struct {
	state  string
	actor  string
	reason string
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Inspect and drive the remediation action lifecycle",
}

var actionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remediation actions",
	RunE:  runActionsList,
}

var actionsApproveCmd = &cobra.Command{
	Use:   "approve <action-id>",
	Short: "Approve a proposed action",
	Args:  cobra.ExactArgs(1),
	RunE:  runActionsApprove,
}

var actionsRejectCmd = &cobra.Command{
	Use:   "reject <action-id>",
	Short: "Reject a proposed action",
	Args:  cobra.ExactArgs(1),
	RunE:  runActionsReject,
}

var actionsExecuteCmd = &cobra.Command{
	Use:   "execute <action-id>",
	Short: "Execute an approved action",
	Args:  cobra.ExactArgs(1),
	RunE:  runActionsExecute,
}

func init() {
	rootCmd.AddCommand(actionsCmd)
	actionsCmd.AddCommand(actionsListCmd, actionsApproveCmd, actionsRejectCmd, actionsExecuteCmd)

	actionsListCmd.Flags().StringVar(&actionsFlags.state, "state", "", "filter by lifecycle state")
	actionsApproveCmd.Flags().StringVar(&actionsFlags.actor, "actor", "", "approving actor (required)")
	actionsRejectCmd.Flags().StringVar(&actionsFlags.actor, "actor", "", "rejecting actor (required)")
	actionsRejectCmd.Flags().StringVar(&actionsFlags.reason, "reason", "", "rejection reason")
	_ = actionsApproveCmd.MarkFlagRequired("actor")
	_ = actionsRejectCmd.MarkFlagRequired("actor")
}

func runActionsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	actions, err := rt.Gate.List(ctx, approval.ListFilter{State: approval.State(actionsFlags.state)})
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		fmt.Println("no actions")
		return nil
	}
	for _, a := range actions {
		fmt.Printf("%s  %-16s %-10s target=%s rule=%s\n", a.ID, a.Kind, a.State, a.TargetRef, a.RuleID)
	}
	return nil
}

func runActionsApprove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	action, err := rt.Gate.Approve(ctx, args[0], actionsFlags.actor)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Action %s approved\n", action.ID)
	return nil
}

func runActionsReject(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	reason := actionsFlags.reason
	if reason == "" {
		reason = "no reason given"
	}
	action, err := rt.Gate.Reject(ctx, args[0], actionsFlags.actor, reason)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Action %s rejected\n", action.ID)
	return nil
}

func runActionsExecute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	outcome, err := rt.Runner.Run(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("✓ Executed: %s\n", outcome.Detail)
	return nil
}
