package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/config"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/governor"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/telemetry/logging"
)

// loadConfig loads the config file and installs the logging handler. The
// verbose flag overrides the configured level.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	// The default config file is optional; an explicitly passed one is not.
	if path == "config.yaml" && !rootCmd.PersistentFlags().Changed("config") {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if _, err := logging.Setup(cfg.Logging, nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildRuntime loads configuration and wires the full governance runtime.
// The caller owns rt.Close.
func buildRuntime(ctx context.Context) (*governor.Runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return governor.Build(ctx, cfg)
}
