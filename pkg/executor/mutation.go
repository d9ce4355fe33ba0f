package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/datasource"
)

// MutationConnector remediates by patching documents in the governed store
// directly. The action payload names the collection, a filter, and the
// patch to apply.
type MutationConnector struct {
	ds     datasource.Adapter
	logger *slog.Logger
}

// NewMutationConnector creates the direct-mutation connector.
func NewMutationConnector(ds datasource.Adapter) *MutationConnector {
	return &MutationConnector{
		ds:     ds,
		logger: slog.Default().With("component", "executor.mutation"),
	}
}

// Ready implements Executor. The connector shares the engine's data source,
// so configuration is whatever the adapter was built with.
func (c *MutationConnector) Ready() error {
	if c.ds == nil {
		return &ConnectorUnconfiguredError{Connector: "mutation", Missing: []string{"datasource"}}
	}
	return nil
}

// Execute applies the payload patch to the matching documents.
func (c *MutationConnector) Execute(ctx context.Context, action *approval.Action) (*Outcome, error) {
	collection := stringField(action.Payload, "collection")
	filter, _ := action.Payload["filter"].(map[string]any)
	patch, _ := action.Payload["patch"].(map[string]any)

	if collection == "" || len(patch) == 0 {
		return nil, &ExecutionError{
			Connector: "mutation",
			Retryable: false,
			Cause:     fmt.Errorf("action %s payload needs collection and patch", action.ID),
		}
	}

	res, err := c.ds.Update(ctx, collection, filter, patch)
	if err != nil {
		var unavailable *datasource.UnavailableError
		retryable := errors.As(err, &unavailable)
		return nil, &ExecutionError{Connector: "mutation", Retryable: retryable, Cause: err}
	}
	if res.MatchedCount == 0 {
		return nil, &ExecutionError{
			Connector: "mutation",
			Retryable: false,
			Cause:     fmt.Errorf("no documents in %q matched the action filter", collection),
		}
	}

	c.logger.Info("documents patched", "action_id", action.ID, "collection", collection, "matched", res.MatchedCount)
	return &Outcome{
		Reference: fmt.Sprintf("%s:%d", collection, res.MatchedCount),
		Detail:    fmt.Sprintf("patched %d documents in %s", res.MatchedCount, collection),
	}, nil
}
