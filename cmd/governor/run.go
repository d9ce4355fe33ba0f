package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/config"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/governor"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/seed"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/server"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/sweep"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/telemetry/logging"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/tools"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	stdio         bool
	seedFixtures  bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the governance server",
	Long: `Start the governance server with the specified configuration.

The server exposes the governance tools over HTTP, runs the scheduled
rule sweep, and hot-reloads rule thresholds when the configuration file
changes.

Examples:
  # Start with default config
  governor run

  # Start with custom config
  governor run --config /etc/governor/config.yaml

  # Serve tools over MCP stdio for an agent host
  governor run --stdio

  # Load demonstration fixtures into the data source first
  governor run --seed

  # Validate config without starting
  governor run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.stdio, "stdio", false, "serve tools over MCP stdio instead of HTTP")
	runCmd.Flags().BoolVar(&runFlags.seedFixtures, "seed", false, "load demonstration fixtures on startup")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
		if _, err := logging.Setup(cfg.Logging, nil); err != nil {
			return err
		}
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := governor.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if runFlags.seedFixtures {
		if err := seed.Apply(ctx, rt.DataSource); err != nil {
			return fmt.Errorf("failed to seed fixtures: %w", err)
		}
	}

	registry := tools.NewRegistry(rt)

	// Scheduled sweep, when configured.
	if cfg.Sweep.Schedule != "" {
		scheduler := sweep.NewScheduler(rt, rt.Audit, cfg.Sweep.Schedule, rt.Metrics)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sweep scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	// Threshold hot-reload from the config file.
	if cfgFile != "" {
		watcher := config.NewWatcher(cfgFile)
		go func() {
			err := watcher.Watch(ctx, func(newCfg *config.Config) {
				if err := rt.ApplyThresholds(newCfg.Rules.Thresholds()); err != nil {
					slog.Error("failed to apply reloaded thresholds", "error", err)
				}
			})
			if err != nil {
				slog.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	if runFlags.stdio || cfg.MCP.Enabled {
		return tools.ServeStdio(ctx, registry, "sdlc-governor", Version)
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = rt.Metrics.Handler()
	}
	srv := server.NewServer(cfg, registry, metricsHandler)
	return srv.Start(ctx)
}
