package config

import "time"

// ApplyDefaults fills in zero-valued fields with working defaults. The
// default deployment runs entirely in memory so the binary is usable with
// no configuration file at all.
func ApplyDefaults(cfg *Config) {
	if cfg.DataSource.Backend == "" {
		cfg.DataSource.Backend = "memory"
	}
	if cfg.DataSource.Path == "" {
		cfg.DataSource.Path = "data/governance.db"
	}

	if cfg.State.Backend == "" {
		cfg.State.Backend = "memory"
	}
	if cfg.State.Path == "" {
		cfg.State.Path = "data/state.db"
	}

	if cfg.Rules.BottleneckMaxPending == 0 {
		cfg.Rules.BottleneckMaxPending = 5
	}
	if cfg.Rules.StaleAfterDays == 0 {
		cfg.Rules.StaleAfterDays = 30
	}

	if cfg.Connectors.Ticket.Timeout == 0 {
		cfg.Connectors.Ticket.Timeout = 15 * time.Second
	}
	if cfg.Connectors.Ticket.ProjectKey == "" {
		cfg.Connectors.Ticket.ProjectKey = "GOV"
	}

	if cfg.Executor.Timeout == 0 {
		cfg.Executor.Timeout = 30 * time.Second
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8089"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "sdlc"
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = "governance"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Default returns a complete configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
