package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServeStdio exposes the registry over the Model Context Protocol on
// standard input and output. It blocks until the stream closes or ctx is
// cancelled. Typed governance failures come back as error tool results;
// only malformed requests surface as protocol errors.
func ServeStdio(ctx context.Context, reg *Registry, name, version string) error {
	srv, err := newMCPServer(reg, name, version)
	if err != nil {
		return err
	}
	slog.Default().With("component", "tools.mcp").Info("serving tools over stdio", "tools", len(reg.List()))
	return server.NewStdioServer(srv).Listen(ctx, os.Stdin, os.Stdout)
}

func newMCPServer(reg *Registry, name, version string) (*server.MCPServer, error) {
	srv := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, tool := range reg.List() {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal input schema for %s: %w", tool.Name, err)
		}
		toolName := tool.Name
		srv.AddTool(
			mcp.NewToolWithRawSchema(tool.Name, tool.Description, schema),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := reg.Dispatch(ctx, toolName, req.GetArguments())
				if err != nil {
					return nil, err
				}
				if res.IsError {
					return mcp.NewToolResultError(res.Text), nil
				}
				return mcp.NewToolResultText(res.Text), nil
			},
		)
	}
	return srv, nil
}
