// Governor is a closed-loop SDLC governance engine.
//
// It evaluates governance rules against an operational store, routes the
// resulting remediation proposals through a human approval gate, executes
// approved actions at most once, and keeps an append-only audit trail of
// every decision.
//
// Usage:
//
//	# Start the server with default configuration
//	governor run
//
//	# Start with a custom configuration file
//	governor run --config /path/to/config.yaml
//
//	# Serve tools over MCP stdio instead of HTTP
//	governor run --stdio
//
//	# Evaluate a single rule from the command line
//	governor evaluate detect_drift
//
//	# Review and execute actions
//	governor actions list --state proposed
//	governor actions approve <action-id> --actor alice
//	governor actions execute <action-id>
//
//	# Inspect the audit trail
//	governor audit --action <action-id>
package main

func main() {
	Execute()
}
